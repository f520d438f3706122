package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/civic-auth/internal/model"
	"github.com/iliyamo/civic-auth/internal/utils"
)

// UserRepo is the narrow interface to the user directory backing
// credential checks, registration and profile reads.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,full_name,role,google_id,is_active,is_verified,created_at,updated_at"

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role) VALUES (?,?,?,?)",
		email, hash, fullName, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateFromGoogle inserts a user whose identity was established by
// a verified external identity token. No password hash is stored.
func (r *UserRepo) CreateFromGoogle(ctx context.Context, email, fullName, role, googleID string, verified bool) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role, google_id, is_verified) VALUES (?,'',?,?,?,?)",
		email, fullName, role, googleID, verified)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByGoogleID fetches a user previously linked to a Google subject.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (model.User, error) {
	return r.get(ctx, "SELECT "+userColumns+" FROM users WHERE google_id=? LIMIT 1", googleID)
}

func (r *UserRepo) get(ctx context.Context, query string, arg interface{}) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.GoogleID,
			&u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// LinkGoogle attaches a verified Google subject to an existing
// account and upgrades its verified flag when Google vouches for
// the email address.
func (r *UserRepo) LinkGoogle(ctx context.Context, id uint64, googleID string, verified bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET google_id=?, is_verified=(is_verified OR ?) WHERE id=?",
		googleID, verified, id)
	return err
}

// UpdateProfile sets the mutable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET full_name=? WHERE id=?", fullName, id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}
