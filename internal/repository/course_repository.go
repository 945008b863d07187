package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avorland/course-registration/internal/model"
)

// CourseRepo provides CRUD operations for courses and their time
// intervals.  The intervals of a course are stored in the course_times
// table, one row per timespan.  All timestamp fields are stored in UTC.
// In addition to CRUD, the repo exposes the lookups the conflict
// validator and the allocation engine need: intervals by course, courses
// sharing a room or assistant, and the spot count.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo returns a new CourseRepo bound to the given database.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

// Create inserts a new course together with its time intervals and
// populates the generated ID and timestamps on the provided record.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO courses (lecture_id, assistant, room, spots, signup_start, signup_end)
               VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		c.LectureID, c.Assistant, c.Room, c.Spots, c.Signup.Start.UTC(), c.Signup.End.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	if err := insertTimesTx(ctx, tx, c.ID, c.Datetimes); err != nil {
		return err
	}
	const sel = `SELECT created_at, updated_at FROM courses WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertTimesTx inserts all interval rows for a course in a single
// statement.  Passing an empty slice has no effect and returns nil.
func insertTimesTx(ctx context.Context, tx *sql.Tx, courseID uint64, spans []model.Timespan) error {
	if len(spans) == 0 {
		return nil
	}
	query := `INSERT INTO course_times (course_id, starts_at, ends_at) VALUES `
	args := make([]interface{}, 0, len(spans)*3)
	for i, s := range spans {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, courseID, s.Start.UTC(), s.End.UTC())
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Update rewrites a course's mutable attributes and replaces its time
// intervals.  The lecture reference is immutable and not touched.  When
// the course does not exist, sql.ErrNoRows is returned.
func (r *CourseRepo) Update(ctx context.Context, c *model.Course) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `UPDATE courses
               SET assistant = ?, room = ?, spots = ?, signup_start = ?, signup_end = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	result, err := tx.ExecContext(ctx, q,
		c.Assistant, c.Room, c.Spots, c.Signup.Start.UTC(), c.Signup.End.UTC(), c.ID)
	if err != nil {
		return err
	}
	if _, err := result.RowsAffected(); err != nil {
		return err
	}
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE id = ?`, c.ID).Scan(&exists); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_times WHERE course_id = ?`, c.ID); err != nil {
		return err
	}
	if err := insertTimesTx(ctx, tx, c.ID, c.Datetimes); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns a single course including its intervals.  When no
// course with the specified ID exists, sql.ErrNoRows is returned.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (*model.Course, error) {
	const q = `SELECT id, lecture_id, assistant, room, spots, signup_start, signup_end, created_at, updated_at
               FROM courses WHERE id = ?`
	var c model.Course
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.LectureID, &c.Assistant, &c.Room, &c.Spots,
		&c.Signup.Start, &c.Signup.End, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	spans, err := r.Datetimes(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Datetimes = spans
	return &c, nil
}

// Datetimes returns the time intervals of a course ordered by start
// time ascending.  A course without intervals yields an empty slice.
func (r *CourseRepo) Datetimes(ctx context.Context, courseID uint64) ([]model.Timespan, error) {
	const q = `SELECT starts_at, ends_at FROM course_times WHERE course_id = ? ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spans := make([]model.Timespan, 0)
	for rows.Next() {
		var s model.Timespan
		if err := rows.Scan(&s.Start, &s.End); err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spans, nil
}

// List returns all courses, optionally restricted to one lecture when
// lectureID is non-zero.  Intervals are populated in a single
// additional query.  Courses are ordered by ID ascending.
func (r *CourseRepo) List(ctx context.Context, lectureID uint64) ([]model.Course, error) {
	q := `SELECT id, lecture_id, assistant, room, spots, signup_start, signup_end, created_at, updated_at
          FROM courses`
	args := []interface{}{}
	if lectureID != 0 {
		q += ` WHERE lecture_id = ?`
		args = append(args, lectureID)
	}
	q += ` ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	courses := make([]model.Course, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(
			&c.ID, &c.LectureID, &c.Assistant, &c.Room, &c.Spots,
			&c.Signup.Start, &c.Signup.End, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.Datetimes = []model.Timespan{}
		index[c.ID] = len(courses)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return courses, nil
	}
	ids := make([]interface{}, 0, len(courses))
	placeholders := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
		placeholders = append(placeholders, "?")
	}
	tq := `SELECT course_id, starts_at, ends_at FROM course_times
           WHERE course_id IN (` + strings.Join(placeholders, ",") + `)
           ORDER BY course_id, starts_at`
	trows, err := r.db.QueryContext(ctx, tq, ids...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var cid uint64
		var s model.Timespan
		if err := trows.Scan(&cid, &s.Start, &s.End); err != nil {
			return nil, err
		}
		if idx, ok := index[cid]; ok {
			courses[idx].Datetimes = append(courses[idx].Datetimes, s)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// ByRoomExcluding returns all courses booked into the given room except
// the one with the excluded ID, with their intervals populated.  It is
// used by the conflict validator's room booking check.  Pass zero to
// exclude nothing.
func (r *CourseRepo) ByRoomExcluding(ctx context.Context, room string, excludeID uint64) ([]model.Course, error) {
	return r.listByScope(ctx, "room", room, excludeID)
}

// ByAssistantExcluding is the assistant-scoped variant of
// ByRoomExcluding.
func (r *CourseRepo) ByAssistantExcluding(ctx context.Context, assistant string, excludeID uint64) ([]model.Course, error) {
	return r.listByScope(ctx, "assistant", assistant, excludeID)
}

// listByScope fetches courses matching one uniqueness scope column and
// loads their intervals.  The column name is fixed by the callers, never
// caller input.
func (r *CourseRepo) listByScope(ctx context.Context, column, value string, excludeID uint64) ([]model.Course, error) {
	q := `SELECT id, lecture_id, assistant, room, spots, signup_start, signup_end, created_at, updated_at
          FROM courses WHERE ` + column + ` = ? AND id <> ?`
	rows, err := r.db.QueryContext(ctx, q, value, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	courses := make([]model.Course, 0)
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(
			&c.ID, &c.LectureID, &c.Assistant, &c.Room, &c.Spots,
			&c.Signup.Start, &c.Signup.End, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range courses {
		spans, err := r.Datetimes(ctx, courses[i].ID)
		if err != nil {
			return nil, err
		}
		courses[i].Datetimes = spans
	}
	return courses, nil
}

// Spots returns the seat capacity of a course.  When the course does
// not exist, sql.ErrNoRows is returned.
func (r *CourseRepo) Spots(ctx context.Context, courseID uint64) (int, error) {
	const q = `SELECT spots FROM courses WHERE id = ?`
	var spots int
	if err := r.db.QueryRowContext(ctx, q, courseID).Scan(&spots); err != nil {
		return 0, err
	}
	return spots, nil
}

// Delete removes a course as long as no signup references it.  The
// guard and the delete run as one statement so a concurrent signup
// cannot slip in between check and delete.  It returns ErrConflict when
// signups still reference the course and sql.ErrNoRows when the course
// does not exist.
func (r *CourseRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM courses
               WHERE id = ? AND NOT EXISTS (SELECT 1 FROM signups WHERE course_id = ?)`
	result, err := r.db.ExecContext(ctx, q, id, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		_, err = r.db.ExecContext(ctx, `DELETE FROM course_times WHERE course_id = ?`, id)
		return err
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return err
	}
	return ErrConflict
}
