package auth

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy for coordinator operations. Every operation
// returns either a success payload or exactly one of these; the
// handler layer maps them to transport responses.
var (
	// ErrInvalidCredentials covers unknown identifier and wrong
	// password alike so the boundary cannot be used for account
	// enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is a token that verified structurally but does
	// not correspond to a live record (unknown identifier, wrong
	// signature, wrong kind).
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired is a token past its expiry.
	ErrExpired = errors.New("token expired")

	// ErrRevoked is a refresh token that has been revoked. Terminal:
	// once reported for an identifier it is reported forever.
	ErrRevoked = errors.New("token revoked")

	// ErrMalformed is a string that is not a token at all.
	ErrMalformed = errors.New("malformed token")

	// ErrUserInactive is a disabled account presenting otherwise
	// valid credentials or tokens.
	ErrUserInactive = errors.New("user inactive")

	// ErrStoreUnavailable is a timeout or connectivity failure
	// talking to the database or cache. Distinct from every
	// authentication failure so the API layer can degrade instead of
	// telling a legitimate user they are locked out.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// LockedOutError rejects a login attempt from a client key that has
// exceeded the failure threshold. RetryAfter is the remaining
// lockout window.
type LockedOutError struct {
	RetryAfter time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("locked out, retry after %s", e.RetryAfter)
}
