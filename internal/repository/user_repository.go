package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avorland/course-registration/internal/model"
	"github.com/avorland/course-registration/internal/utils"
)

// UserRepo persists application accounts in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrNethzExists = errors.New("nethz already exists")

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, nethz, password string, isAdmin bool, cost int) (uint64, error) {
	nethz = strings.ToLower(strings.TrimSpace(nethz))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (nethz, password_hash, is_admin) VALUES (?,?,?)",
		nethz, hash, isAdmin)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNethzExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByNethz fetches a user by normalized nethz.
func (r *UserRepo) GetByNethz(ctx context.Context, nethz string) (model.User, error) {
	nethz = strings.ToLower(strings.TrimSpace(nethz))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,nethz,password_hash,is_admin,created_at,updated_at FROM users WHERE nethz=? LIMIT 1",
		nethz).Scan(&u.ID, &u.Nethz, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,nethz,password_hash,is_admin,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Nethz, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
