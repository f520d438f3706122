package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/civic-auth/internal/model"
)

// SessionRepo appends to and queries the login_history ledger. The
// ledger records every login attempt; rows are only ever mutated to
// set logout_time.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Append writes one ledger entry for a login attempt.
func (r *SessionRepo) Append(ctx context.Context, userID uint64, ip, userAgent string, at time.Time, successful bool) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_history (user_id, ip_address, user_agent, login_time, is_successful) VALUES (?,?,?,?,?)",
		userID, ip, userAgent, at, successful)
	return err
}

// CloseLatestOpen stamps logout_time on the user's most recent open
// session entry. Closing when no entry is open is a no-op; the
// design allows multiple concurrently open entries and logout only
// closes the newest one.
func (r *SessionRepo) CloseLatestOpen(ctx context.Context, userID uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE login_history SET logout_time=?
		 WHERE id = (
		     SELECT id FROM (
		         SELECT id FROM login_history
		         WHERE user_id=? AND is_successful=1 AND logout_time IS NULL
		         ORDER BY login_time DESC LIMIT 1
		     ) latest
		 )`,
		at, userID)
	return err
}

// ListByUser returns the user's login history, newest first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.SessionEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, ip_address, user_agent, login_time, logout_time, is_successful FROM login_history WHERE user_id=? ORDER BY login_time DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.SessionEntry
	for rows.Next() {
		var e model.SessionEntry
		var logout sql.NullTime
		if err := rows.Scan(&e.ID, &e.UserID, &e.IPAddress, &e.UserAgent, &e.LoginTime, &logout, &e.IsSuccessful); err != nil {
			return nil, err
		}
		if logout.Valid {
			at := logout.Time
			e.LogoutTime = &at
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
