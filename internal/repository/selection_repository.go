package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avorland/course-registration/internal/model"
)

// SelectionRepo provides CRUD operations for selections, the
// status-free preliminary course choices users save before signups
// open.  Selections share the uniqueness and overlap rules of signups
// but never participate in allocation.
type SelectionRepo struct {
	db *sql.DB
}

// NewSelectionRepo returns a new SelectionRepo bound to the given database.
func NewSelectionRepo(db *sql.DB) *SelectionRepo { return &SelectionRepo{db: db} }

// Create inserts a new selection and populates the generated ID and
// timestamps on the provided record.  A duplicate (nethz, course)
// combination is reported as ErrDuplicate.
func (r *SelectionRepo) Create(ctx context.Context, s *model.Selection) error {
	const q = `INSERT INTO selections (nethz, course_id) VALUES (?, ?)`
	result, err := r.db.ExecContext(ctx, q, s.Nethz, s.CourseID)
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
	const sel = `SELECT created_at, updated_at FROM selections WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a single selection.  When no selection with the
// specified ID exists, sql.ErrNoRows is returned.
func (r *SelectionRepo) GetByID(ctx context.Context, id uint64) (*model.Selection, error) {
	const q = `SELECT id, nethz, course_id, created_at, updated_at FROM selections WHERE id = ?`
	var s model.Selection
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Nethz, &s.CourseID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByOwner returns all selections belonging to the given nethz
// ordered by creation time descending.  Pass an empty nethz to list
// every selection (admin view).
func (r *SelectionRepo) ListByOwner(ctx context.Context, nethz string) ([]model.Selection, error) {
	q := `SELECT id, nethz, course_id, created_at, updated_at FROM selections`
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
	selections := make([]model.Selection, 0)
	for rows.Next() {
		var s model.Selection
		if err := rows.Scan(&s.ID, &s.Nethz, &s.CourseID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		selections = append(selections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return selections, nil
}

// UpdateCourse moves a selection to another course.  A duplicate
// (nethz, new course) combination is reported as ErrDuplicate and
// sql.ErrNoRows when the selection does not exist.
func (r *SelectionRepo) UpdateCourse(ctx context.Context, id, courseID uint64) error {
	const q = `UPDATE selections SET course_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, courseID, id)
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
	return r.db.QueryRowContext(ctx, `SELECT 1 FROM selections WHERE id = ?`, id).Scan(&exists)
}

// Delete removes a selection.  When the selection does not exist,
// sql.ErrNoRows is returned.
func (r *SelectionRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM selections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CourseIDsByOwnerExcluding returns the course references of all
// selections owned by the given nethz except the excluded one.
func (r *SelectionRepo) CourseIDsByOwnerExcluding(ctx context.Context, nethz string, excludeID uint64) ([]uint64, error) {
	const q = `SELECT course_id FROM selections WHERE nethz = ? AND id <> ?`
	return queryIDs(ctx, r.db, q, nethz, excludeID)
}

// ExistsForOwnerAndCourse reports whether the owner already has a
// selection for the course, excluding the record being updated.
func (r *SelectionRepo) ExistsForOwnerAndCourse(ctx context.Context, nethz string, courseID, excludeID uint64) (bool, error) {
	const q = `SELECT 1 FROM selections WHERE nethz = ? AND course_id = ? AND id <> ? LIMIT 1`
	return queryExists(ctx, r.db, q, nethz, courseID, excludeID)
}
