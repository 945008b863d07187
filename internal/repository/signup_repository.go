package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avorland/course-registration/internal/model"
)

// SignupRepo provides CRUD operations for signups as well as the
// waiting-list primitives the allocation engine runs on: counting taken
// spots, selecting the oldest waiting signups and conditionally
// promoting them.  The (nethz, course_id) combination is unique at the
// database level, which backstops the validator's duplicate check under
// concurrent inserts.
type SignupRepo struct {
	db *sql.DB
}

// NewSignupRepo returns a new SignupRepo bound to the given database.
func NewSignupRepo(db *sql.DB) *SignupRepo { return &SignupRepo{db: db} }

// Create inserts a new signup with status waiting and populates the
// generated ID and timestamps on the provided record.  A duplicate
// (nethz, course) combination is reported as ErrDuplicate.
func (r *SignupRepo) Create(ctx context.Context, s *model.Signup) error {
	const q = `INSERT INTO signups (nethz, course_id, status) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, s.Nethz, s.CourseID, model.StatusWaiting)
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
	s.ID = uint64(id)
	s.Status = model.StatusWaiting
	const sel = `SELECT created_at, updated_at FROM signups WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a single signup.  When no signup with the specified
// ID exists, sql.ErrNoRows is returned.
func (r *SignupRepo) GetByID(ctx context.Context, id uint64) (*model.Signup, error) {
	const q = `SELECT id, nethz, course_id, status, created_at, updated_at FROM signups WHERE id = ?`
	var s model.Signup
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Nethz, &s.CourseID, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByOwner returns all signups belonging to the given nethz ordered
// by creation time descending.  Pass an empty nethz to list every
// signup (admin view).
func (r *SignupRepo) ListByOwner(ctx context.Context, nethz string) ([]model.Signup, error) {
	q := `SELECT id, nethz, course_id, status, created_at, updated_at FROM signups`
	args := []interface{}{}
	if nethz != "" {
		q += ` WHERE nethz = ?`
		args = append(args, nethz)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	signups := make([]model.Signup, 0)
	for rows.Next() {
		var s model.Signup
		if err := rows.Scan(&s.ID, &s.Nethz, &s.CourseID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		signups = append(signups, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return signups, nil
}

// UpdateCourse moves a signup to another course.  The status is reset
// to waiting so the signup cannot carry a reserved seat into a full
// course; the allocation engine re-promotes it if the new course has
// capacity.  A duplicate (nethz, new course) combination is reported as
// ErrDuplicate and sql.ErrNoRows when the signup does not exist.
func (r *SignupRepo) UpdateCourse(ctx context.Context, id, courseID uint64) error {
	const q = `UPDATE signups SET course_id = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, courseID, model.StatusWaiting, id)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicate
		}
		return err
	}
	if _, err := result.RowsAffected(); err != nil {
		return err
	}
	var exists int
	return r.db.QueryRowContext(ctx, `SELECT 1 FROM signups WHERE id = ?`, id).Scan(&exists)
}

// Delete removes a signup and returns the course it referenced so the
// caller can rebalance that course.  When the signup does not exist,
// sql.ErrNoRows is returned.
func (r *SignupRepo) Delete(ctx context.Context, id uint64) (uint64, error) {
	var courseID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT course_id FROM signups WHERE id = ?`, id).Scan(&courseID); err != nil {
		return 0, err
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM signups WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, sql.ErrNoRows
	}
	return courseID, nil
}

// CountTaken counts the signups of a course that occupy a spot, i.e.
// whose status is not waiting.  Reserved and accepted are deliberately
// folded together: a payment only converts reserved to accepted, so the
// count is stable across payment flows.
func (r *SignupRepo) CountTaken(ctx context.Context, courseID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM signups WHERE course_id = ? AND status <> ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, courseID, model.StatusWaiting).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// OldestWaiting returns the IDs of up to limit waiting signups of a
// course, ordered by update timestamp ascending with nethz as
// tie-breaker.  This is the deterministic promotion order of the
// waiting list.
func (r *SignupRepo) OldestWaiting(ctx context.Context, courseID uint64, limit int) ([]uint64, error) {
	const q = `SELECT id FROM signups
               WHERE course_id = ? AND status = ?
               ORDER BY updated_at ASC, nethz ASC
               LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, courseID, model.StatusWaiting, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0, limit)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// PromoteWaiting sets the selected signups to reserved, one
// conditional update per signup.  The status predicate re-verifies at
// write time that each signup is still waiting, so a concurrent change
// cannot promote a signup twice.  It returns the IDs that were actually
// promoted; a signup that vanished or changed status between selection
// and this write is simply absent from the result.
func (r *SignupRepo) PromoteWaiting(ctx context.Context, ids []uint64) ([]uint64, error) {
	promoted := make([]uint64, 0, len(ids))
	const q = `UPDATE signups SET status = ? WHERE id = ? AND status = ?`
	for _, id := range ids {
		result, err := r.db.ExecContext(ctx, q, model.StatusReserved, id, model.StatusWaiting)
		if err != nil {
			return promoted, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return promoted, err
		}
		if n > 0 {
			promoted = append(promoted, id)
		}
	}
	return promoted, nil
}

// StatusByIDs returns the status for each of the given signup IDs.
// Missing IDs are simply absent from the result map; the caller decides
// whether that is an error.
func (r *SignupRepo) StatusByIDs(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	statuses := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id, status FROM signups WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		statuses[id] = status
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// CourseIDsByOwnerExcluding returns the course references of all
// signups owned by the given nethz except the signup with the excluded
// ID.  It feeds the validator's course overlap check.  Pass zero to
// exclude nothing.
func (r *SignupRepo) CourseIDsByOwnerExcluding(ctx context.Context, nethz string, excludeID uint64) ([]uint64, error) {
	const q = `SELECT course_id FROM signups WHERE nethz = ? AND id <> ?`
	return queryIDs(ctx, r.db, q, nethz, excludeID)
}

// ExistsForOwnerAndCourse reports whether the owner already has a
// signup to the course, excluding the record being updated.
func (r *SignupRepo) ExistsForOwnerAndCourse(ctx context.Context, nethz string, courseID, excludeID uint64) (bool, error) {
	const q = `SELECT 1 FROM signups WHERE nethz = ? AND course_id = ? AND id <> ? LIMIT 1`
	return queryExists(ctx, r.db, q, nethz, courseID, excludeID)
}

// queryIDs runs a query returning a single uint64 column.
func queryIDs(ctx context.Context, db *sql.DB, q string, args ...interface{}) ([]uint64, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// queryExists runs an existence query and maps sql.ErrNoRows to false.
func queryExists(ctx context.Context, db *sql.DB, q string, args ...interface{}) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, q, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
