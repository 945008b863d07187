package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avorland/course-registration/internal/model"
)

// PaymentRepo provides persistence for payments and their signup
// references.  Signup references live in the payment_signups table.
// Creating a payment and flipping its signups to accepted happens in
// one transaction so a crash cannot leave paid signups unaccepted.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts the payment, its signup references, and marks all
// referenced signups accepted.  The updated_at of the signups is left
// untouched so paying does not change the waiting-list order key.  A
// reused token is reported as ErrDuplicate.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
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
	const q = `INSERT INTO payments (token, charge_id, amount) VALUES (?, ?, ?)`
	var token interface{}
	if p.Token != "" {
		token = p.Token
	}
	result, err := tx.ExecContext(ctx, q, token, p.ChargeID, p.Amount)
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
	p.ID = uint64(id)
	query := `INSERT INTO payment_signups (payment_id, signup_id) VALUES `
	args := make([]interface{}, 0, len(p.SignupIDs)*2)
	for i, sid := range p.SignupIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, p.ID, sid)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := setStatusAllTx(ctx, tx, p.SignupIDs, model.StatusAccepted); err != nil {
		return err
	}
	const sel = `SELECT created_at FROM payments WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// setStatusAllTx flips the status of the given signups in one bulk
// statement.  The update deliberately skips the updated_at column so a
// payment does not change the waiting-list order key.
func setStatusAllTx(ctx context.Context, tx *sql.Tx, ids []uint64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, status)
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `UPDATE signups SET status = ?, updated_at = updated_at
          WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// GetByID returns a single payment including its signup references.
// When no payment with the specified ID exists, sql.ErrNoRows is
// returned.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = `SELECT id, token, charge_id, amount, created_at FROM payments WHERE id = ?`
	var p model.Payment
	var token, chargeID sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &token, &chargeID, &p.Amount, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Token = token.String
	p.ChargeID = chargeID.String
	ids, err := queryIDs(ctx, r.db, `SELECT signup_id FROM payment_signups WHERE payment_id = ?`, id)
	if err != nil {
		return nil, err
	}
	p.SignupIDs = ids
	return &p, nil
}

// List returns all payments ordered by creation time descending, with
// signup references populated per payment.
func (r *PaymentRepo) List(ctx context.Context) ([]model.Payment, error) {
	const q = `SELECT id, token, charge_id, amount, created_at FROM payments ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		var token, chargeID sql.NullString
		if err := rows.Scan(&p.ID, &token, &chargeID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Token = token.String
		p.ChargeID = chargeID.String
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range payments {
		ids, err := queryIDs(ctx, r.db, `SELECT signup_id FROM payment_signups WHERE payment_id = ?`, payments[i].ID)
		if err != nil {
			return nil, err
		}
		payments[i].SignupIDs = ids
	}
	return payments, nil
}

// Delete removes a payment and demotes its signups back to reserved,
// the reversal of Create.  It returns the demoted signup IDs and
// sql.ErrNoRows when the payment does not exist.
func (r *PaymentRepo) Delete(ctx context.Context, id uint64) ([]uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	rows, err := tx.QueryContext(ctx, `SELECT signup_id FROM payment_signups WHERE payment_id = ?`, id)
	if err != nil {
		return nil, err
	}
	signupIDs := make([]uint64, 0)
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			rows.Close()
			return nil, err
		}
		signupIDs = append(signupIDs, sid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	result, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payment_signups WHERE payment_id = ?`, id); err != nil {
		return nil, err
	}
	if err := setStatusAllTx(ctx, tx, signupIDs, model.StatusReserved); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return signupIDs, nil
}
