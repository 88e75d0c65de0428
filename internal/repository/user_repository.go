package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/utils"
)

// UserRepo persists user accounts.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with a bcrypt password hash and returns its
// ID.  Usernames are normalized to lower case.  Duplicate usernames
// yield ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, username, password, role string, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, is_active, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?)`,
		username, hash, role, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var u model.User
	var active int
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, is_active, created_at, updated_at FROM users WHERE username = ? LIMIT 1`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &active, &u.CreatedAt, &u.UpdatedAt)
	u.IsActive = active != 0
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	var active int
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, is_active, created_at, updated_at FROM users WHERE id = ? LIMIT 1`,
		id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &active, &u.CreatedAt, &u.UpdatedAt)
	u.IsActive = active != 0
	return u, err
}

// ListStudents returns all student accounts ordered by username.
func (r *UserRepo) ListStudents(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, username, password_hash, role, is_active, created_at, updated_at FROM users WHERE role = ? ORDER BY username`,
		model.RoleStudent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		var active int
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.IsActive = active != 0
		out = append(out, u)
	}
	return out, rows.Err()
}
