package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and is correlated with the opaque
// `tid` claim carried inside the signed refresh JWT.  The signed
// token itself is never stored; only the identifier.
//
// A record is valid while it is neither revoked nor expired.  Once
// RevokedAt is set it is never cleared: revocation is terminal.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenID   – opaque unique identifier embedded in the refresh JWT.
//  IssuedAt  – when the token was issued.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenID   string     // refresh_tokens.token_id
    IssuedAt  time.Time  // refresh_tokens.issued_at
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}

// Revoked reports whether the record has been revoked.
func (t RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// ExpiredAt reports whether the record is past its expiry at the
// given instant.
func (t RefreshToken) ExpiredAt(now time.Time) bool { return now.After(t.ExpiresAt) }
