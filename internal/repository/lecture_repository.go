package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avorland/course-registration/internal/model"
)

// LectureRepo provides CRUD operations for lectures and their assistant
// lists.  Assistants are stored in the lecture_assistants table, one row
// per nethz.  All timestamp fields are assumed to be stored in UTC.
type LectureRepo struct {
	db *sql.DB
}

// NewLectureRepo returns a new LectureRepo bound to the given database.
func NewLectureRepo(db *sql.DB) *LectureRepo { return &LectureRepo{db: db} }

// Create inserts a new lecture together with its assistant list and
// populates the generated ID and timestamps on the provided record.
// A duplicate title is reported as ErrDuplicate.
func (r *LectureRepo) Create(ctx context.Context, l *model.Lecture) error {
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
	const q = `INSERT INTO lectures (title, department, year) VALUES (?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, l.Title, l.Department, l.Year)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	if err := insertAssistantsTx(ctx, tx, l.ID, l.Assistants); err != nil {
		return err
	}
	// Query back the full row to populate timestamps and defaults
	const sel = `SELECT created_at, updated_at FROM lectures WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, l.ID).Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertAssistantsTx inserts all assistant rows for a lecture in a single
// statement.  Passing an empty slice has no effect and returns nil.
func insertAssistantsTx(ctx context.Context, tx *sql.Tx, lectureID uint64, assistants []string) error {
	if len(assistants) == 0 {
		return nil
	}
	query := `INSERT INTO lecture_assistants (lecture_id, nethz) VALUES `
	args := make([]interface{}, 0, len(assistants)*2)
	for i, a := range assistants {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, lectureID, a)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a single lecture including its assistant list.  When no
// lecture with the specified ID exists, sql.ErrNoRows is returned.
func (r *LectureRepo) GetByID(ctx context.Context, id uint64) (*model.Lecture, error) {
	const q = `SELECT id, title, department, year, created_at, updated_at FROM lectures WHERE id = ?`
	var l model.Lecture
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.Title, &l.Department, &l.Year, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	const aq = `SELECT nethz FROM lecture_assistants WHERE lecture_id = ? ORDER BY nethz`
	rows, err := r.db.QueryContext(ctx, aq, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	l.Assistants = []string{}
	for rows.Next() {
		var nethz string
		if err := rows.Scan(&nethz); err != nil {
			return nil, err
		}
		l.Assistants = append(l.Assistants, nethz)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns all lectures ordered by title ascending, with assistant
// lists populated in a single additional query.
func (r *LectureRepo) List(ctx context.Context) ([]model.Lecture, error) {
	const q = `SELECT id, title, department, year, created_at, updated_at FROM lectures ORDER BY title ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lectures := make([]model.Lecture, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var l model.Lecture
		if err := rows.Scan(&l.ID, &l.Title, &l.Department, &l.Year, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		l.Assistants = []string{}
		index[l.ID] = len(lectures)
		lectures = append(lectures, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lectures) == 0 {
		return lectures, nil
	}
	// Populate assistants for all lectures in a single query
	ids := make([]interface{}, 0, len(lectures))
	placeholders := make([]string, 0, len(lectures))
	for _, l := range lectures {
		ids = append(ids, l.ID)
		placeholders = append(placeholders, "?")
	}
	aq := `SELECT lecture_id, nethz FROM lecture_assistants
           WHERE lecture_id IN (` + strings.Join(placeholders, ",") + `)
           ORDER BY lecture_id, nethz`
	arows, err := r.db.QueryContext(ctx, aq, ids...)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var lid uint64
		var nethz string
		if err := arows.Scan(&lid, &nethz); err != nil {
			return nil, err
		}
		if idx, ok := index[lid]; ok {
			lectures[idx].Assistants = append(lectures[idx].Assistants, nethz)
		}
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}
	return lectures, nil
}

// Delete removes a lecture as long as no course references it.  It
// returns ErrConflict when dependent courses exist and sql.ErrNoRows
// when the lecture does not exist.
func (r *LectureRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM lectures
               WHERE id = ? AND NOT EXISTS (SELECT 1 FROM courses WHERE lecture_id = ?)`
	result, err := r.db.ExecContext(ctx, q, id, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		_, err = r.db.ExecContext(ctx, `DELETE FROM lecture_assistants WHERE lecture_id = ?`, id)
		return err
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM lectures WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return err
	}
	return ErrConflict
}
