package auth

import (
	"context"
	"time"

	"github.com/iliyamo/civic-auth/internal/model"
)

// UserDirectory is the external user store. Credential material
// (password hashes) stays behind this boundary.
type UserDirectory interface {
	Create(ctx context.Context, email, password, fullName, role string, cost int) (uint64, error)
	CreateFromGoogle(ctx context.Context, email, fullName, role, googleID string, verified bool) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (model.User, error)
	LinkGoogle(ctx context.Context, id uint64, googleID string, verified bool) error
}

// TokenStore is the durable record of issued refresh-token
// identifiers.
type TokenStore interface {
	Create(ctx context.Context, userID uint64, tokenID string, issuedAt, expiresAt time.Time) error
	Find(ctx context.Context, tokenID string) (model.RefreshToken, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// SessionLedger is the append-only record of login/logout events.
type SessionLedger interface {
	Append(ctx context.Context, userID uint64, ip, userAgent string, at time.Time, successful bool) error
	CloseLatestOpen(ctx context.Context, userID uint64, at time.Time) error
}

// AttemptTracker is the per-client sliding counter of failed
// authentication attempts.
type AttemptTracker interface {
	RecordFailure(ctx context.Context, clientKey string) (int64, error)
	RecordSuccess(ctx context.Context, clientKey string) error
	IsLocked(ctx context.Context, clientKey string) (bool, time.Duration, error)
}

// IdentityVerifier exchanges an external identity token for verified
// claims. The provider handshake itself lives behind this boundary;
// the coordinator only consumes the verified result.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (ExternalIdentity, error)
}

// ExternalIdentity is the verified-claims contract returned by an
// identity provider.
type ExternalIdentity struct {
	Subject  string // provider-scoped stable subject id
	Email    string
	FullName string
	Verified bool // provider vouches for the email address
}

// Sink receives operation outcomes for metrics. Injected so tests
// run in parallel without shared global counters.
type Sink interface {
	AuthOperation(op, status string)
	FailedLogin(reason string)
}

// NopSink discards all observations.
type NopSink struct{}

func (NopSink) AuthOperation(op, status string) {}
func (NopSink) FailedLogin(reason string)       {}

// Notifier publishes domain events (registration, lockout) to the
// message broker. Failures are logged by implementations and never
// fail the request.
type Notifier interface {
	UserRegistered(ctx context.Context, userID uint64, email, fullName string)
	ClientLockedOut(ctx context.Context, clientKey string, retryAfter time.Duration)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) UserRegistered(ctx context.Context, userID uint64, email, fullName string) {}
func (NopNotifier) ClientLockedOut(ctx context.Context, clientKey string, retryAfter time.Duration) {
}
