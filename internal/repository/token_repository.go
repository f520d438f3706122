package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/civic-auth/internal/model"
)

// TokenRepo persists refresh-token records keyed by the opaque
// token identifier embedded in the refresh JWT.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh-token record. token_id carries a UNIQUE
// index, so the same identifier can never validate twice.
func (r *TokenRepo) Create(ctx context.Context, userID uint64, tokenID string, issuedAt, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_id, issued_at, expires_at) VALUES (?,?,?,?)",
		userID, tokenID, issuedAt, expiresAt)
	return err
}

// Find loads the record for an identifier. The caller decides
// validity (revoked/expired) so that the distinct failure kinds can
// be reported separately.
func (r *TokenRepo) Find(ctx context.Context, tokenID string) (model.RefreshToken, error) {
	var t model.RefreshToken
	var revokedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_id, issued_at, expires_at, revoked_at FROM refresh_tokens WHERE token_id=? LIMIT 1",
		tokenID).Scan(&t.ID, &t.UserID, &t.TokenID, &t.IssuedAt, &t.ExpiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	return t, nil
}

// Revoke marks a token as revoked. Revocation is terminal: the
// WHERE clause never clears an existing revoked_at. Revoking an
// unknown identifier reports ErrNotFound.
func (r *TokenRepo) Revoke(ctx context.Context, tokenID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_id=? AND revoked_at IS NULL",
		tokenID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the identifier does not exist or it is already
		// revoked; both read as NotFound to the caller.
		if _, ferr := r.Find(ctx, tokenID); errors.Is(ferr, ErrNotFound) {
			return ErrNotFound
		}
	}
	return nil
}

// RevokeAllForUser revokes every active token of a user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// DeleteExpired removes rows whose expiry is in the past. Purely
// storage hygiene: expired rows already fail validation, so the
// sweep never affects correctness.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
