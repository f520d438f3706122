// Package auth contains the coordinator that drives the token
// lifecycle: login, refresh, logout, lockout checks and the
// register/google entry points that feed it. All shared mutable
// state lives in the external store and cache; the coordinator
// itself is stateless between calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/civic-auth/internal/model"
	"github.com/iliyamo/civic-auth/internal/repository"
	"github.com/iliyamo/civic-auth/internal/token"
	"github.com/iliyamo/civic-auth/internal/utils"
)

// Config carries the token lifetimes and hashing cost.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Client identifies the caller of a login attempt for rate limiting
// and the session ledger. IP is the forwarded-for address when one
// is present, else the raw connection address.
type Client struct {
	IP        string
	UserAgent string
}

// TokenPair is the success payload of login and register.
type TokenPair struct {
	Access         string
	AccessExpires  time.Time
	Refresh        string
	RefreshExpires time.Time
}

// AccessGrant is the success payload of refresh.
type AccessGrant struct {
	Access        string
	AccessExpires time.Time
}

// Coordinator orchestrates the signer, token store, attempt tracker
// and session ledger into the authentication operations.
type Coordinator struct {
	users    UserDirectory
	tokens   TokenStore
	ledger   SessionLedger
	attempts AttemptTracker
	signer   *token.Signer
	metrics  Sink
	notify   Notifier
	identity IdentityVerifier
	cfg      Config

	// Now supplies the clock for expiry math. Overridden in tests.
	Now func() time.Time
}

// New wires a Coordinator. identity may be nil when Google login is
// not configured; metrics and notify fall back to no-ops.
func New(users UserDirectory, tokens TokenStore, ledger SessionLedger, attempts AttemptTracker,
	signer *token.Signer, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		users:    users,
		tokens:   tokens,
		ledger:   ledger,
		attempts: attempts,
		signer:   signer,
		metrics:  NopSink{},
		notify:   NopNotifier{},
		cfg:      cfg,
		Now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures optional collaborators.
type Option func(*Coordinator)

func WithMetrics(s Sink) Option            { return func(c *Coordinator) { c.metrics = s } }
func WithNotifier(n Notifier) Option       { return func(c *Coordinator) { c.notify = n } }
func WithIdentity(v IdentityVerifier) Option { return func(c *Coordinator) { c.identity = v } }

// Login checks the lockout state, verifies credentials against the
// user directory and on success mints an access/refresh pair,
// records the refresh identifier and appends a ledger entry.
//
// While the client key is locked, credentials are not checked at all.
func (c *Coordinator) Login(ctx context.Context, email, password string, client Client) (model.User, TokenPair, error) {
	locked, retryAfter, err := c.attempts.IsLocked(ctx, client.IP)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if locked {
		c.metrics.AuthOperation("login", "locked_out")
		return model.User{}, TokenPair{}, &LockedOutError{RetryAfter: retryAfter}
	}

	u, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			// No owner to write a ledger entry for; the failure still
			// counts against the client key.
			c.recordFailure(ctx, client, "unknown_identifier")
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		c.recordFailure(ctx, client, "wrong_password")
		c.appendLedger(ctx, u.ID, client, false)
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		// A correct password for a disabled account is not a guess;
		// it does not feed the lockout counter.
		c.metrics.FailedLogin("inactive_account")
		c.appendLedger(ctx, u.ID, client, false)
		return model.User{}, TokenPair{}, ErrUserInactive
	}

	if err := c.attempts.RecordSuccess(ctx, client.IP); err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, err := c.issuePair(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	c.appendLedger(ctx, u.ID, client, true)
	c.metrics.AuthOperation("login", "success")
	return u, pair, nil
}

// Register creates a user and logs them in immediately. Field
// validation happens in the handler; the coordinator assumes a
// normalized email and a whitelisted role.
func (c *Coordinator) Register(ctx context.Context, email, password, fullName, role string, client Client) (model.User, TokenPair, error) {
	uid, err := c.users.Create(ctx, email, password, fullName, role, c.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, TokenPair{}, err
		}
		return model.User{}, TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	u, err := c.users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, err := c.issuePair(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	c.appendLedger(ctx, u.ID, client, true)
	c.metrics.AuthOperation("register", "success")
	c.notify.UserRegistered(ctx, u.ID, u.Email, u.FullName)
	return u, pair, nil
}

// LoginWithGoogle exchanges a verified external identity for a
// platform session, creating or linking the account as needed.
func (c *Coordinator) LoginWithGoogle(ctx context.Context, idToken string, client Client) (model.User, TokenPair, error) {
	if c.identity == nil {
		return model.User{}, TokenPair{}, ErrInvalidToken
	}
	ident, err := c.identity.Verify(ctx, idToken)
	if err != nil {
		c.metrics.AuthOperation("google", "invalid_token")
		return model.User{}, TokenPair{}, ErrInvalidToken
	}

	u, err := c.userForIdentity(ctx, ident)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, ErrUserInactive
	}

	pair, err := c.issuePair(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	c.appendLedger(ctx, u.ID, client, true)
	c.metrics.AuthOperation("google", "success")
	return u, pair, nil
}

// Refresh validates a presented refresh token against the store and
// mints a new access token for its owner. The refresh identifier is
// not rotated: the same refresh token stays valid until it expires
// or is revoked.
func (c *Coordinator) Refresh(ctx context.Context, refreshToken string) (model.User, AccessGrant, error) {
	claims, err := c.signer.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return model.User{}, AccessGrant{}, mapVerifyError(err)
	}

	rec, err := c.tokens.Find(ctx, claims.TokenID)
	if err != nil {
		if isNotFound(err) {
			c.metrics.AuthOperation("refresh", "invalid_token")
			return model.User{}, AccessGrant{}, ErrInvalidToken
		}
		return model.User{}, AccessGrant{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// Revocation wins over expiry: a revoked record stays revoked
	// even after its natural expiry passes.
	if rec.Revoked() {
		c.metrics.AuthOperation("refresh", "revoked")
		return model.User{}, AccessGrant{}, ErrRevoked
	}
	if rec.ExpiredAt(c.Now()) {
		c.metrics.AuthOperation("refresh", "expired")
		return model.User{}, AccessGrant{}, ErrExpired
	}

	u, err := c.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if isNotFound(err) {
			return model.User{}, AccessGrant{}, ErrInvalidToken
		}
		return model.User{}, AccessGrant{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !u.IsActive {
		return model.User{}, AccessGrant{}, ErrUserInactive
	}

	access, exp, err := c.issueAccess(u)
	if err != nil {
		return model.User{}, AccessGrant{}, err
	}
	c.metrics.AuthOperation("refresh", "success")
	return u, AccessGrant{Access: access, AccessExpires: exp}, nil
}

// Logout revokes the presented refresh token (best effort: a token
// that cannot be parsed or found is already useless, so the failure
// is absorbed) and closes the user's most recent open ledger entry.
func (c *Coordinator) Logout(ctx context.Context, refreshToken string, userID uint64) error {
	if claims, err := c.signer.Verify(refreshToken, token.KindRefresh); err == nil {
		if err := c.tokens.Revoke(ctx, claims.TokenID); err != nil && !isNotFound(err) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if err := c.ledger.CloseLatestOpen(ctx, userID, c.Now()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	c.metrics.AuthOperation("logout", "success")
	return nil
}

// Authenticate verifies an access token and resolves its principal.
// No revocation state is consulted: access tokens are stateless and
// only as long-lived as their TTL.
func (c *Coordinator) Authenticate(ctx context.Context, accessToken string) (model.User, token.Claims, error) {
	claims, err := c.signer.Verify(accessToken, token.KindAccess)
	if err != nil {
		return model.User{}, token.Claims{}, mapVerifyError(err)
	}
	u, err := c.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			return model.User{}, token.Claims{}, ErrInvalidToken
		}
		return model.User{}, token.Claims{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !u.IsActive {
		return model.User{}, token.Claims{}, ErrUserInactive
	}
	return u, claims, nil
}

// ---- internals ----

// userForIdentity resolves a verified external identity to a local
// account: by provider subject first, then by email (linking the
// subject to the existing account), and finally by creating a new
// citizen account.
func (c *Coordinator) userForIdentity(ctx context.Context, ident ExternalIdentity) (model.User, error) {
	u, err := c.users.GetByGoogleID(ctx, ident.Subject)
	if err == nil {
		return u, nil
	}
	if !isNotFound(err) {
		return model.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	u, err = c.users.GetByEmail(ctx, ident.Email)
	if err == nil {
		if lerr := c.users.LinkGoogle(ctx, u.ID, ident.Subject, ident.Verified); lerr != nil {
			return model.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, lerr)
		}
		return u, nil
	}
	if !isNotFound(err) {
		return model.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	uid, err := c.users.CreateFromGoogle(ctx, ident.Email, ident.FullName, model.RoleCitizen, ident.Subject, ident.Verified)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	u, err = c.users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return u, nil
}

func (c *Coordinator) issuePair(ctx context.Context, u model.User) (TokenPair, error) {
	access, accessExp, err := c.issueAccess(u)
	if err != nil {
		return TokenPair{}, err
	}

	tid := uuid.NewString()
	refresh, refreshExp, err := c.signer.Issue(token.Claims{
		Subject: u.ID,
		Kind:    token.KindRefresh,
		TokenID: tid,
	}, c.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := c.tokens.Create(ctx, u.ID, tid, c.Now(), refreshExp); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return TokenPair{
		Access:         access,
		AccessExpires:  accessExp,
		Refresh:        refresh,
		RefreshExpires: refreshExp,
	}, nil
}

func (c *Coordinator) issueAccess(u model.User) (string, time.Time, error) {
	return c.signer.Issue(token.Claims{
		Subject: u.ID,
		Kind:    token.KindAccess,
		Extra:   map[string]string{"role": u.Role, "email": u.Email},
	}, c.cfg.AccessTTL)
}

// recordFailure counts the failed attempt against the client key and
// emits a lockout alert when this failure crosses the threshold.
// Tracker outages are logged by the tracker and must not turn a
// credential failure into a different outcome, so the error is
// dropped here.
func (c *Coordinator) recordFailure(ctx context.Context, client Client, reason string) {
	c.metrics.FailedLogin(reason)
	count, err := c.attempts.RecordFailure(ctx, client.IP)
	if err != nil {
		return
	}
	if locked, retryAfter, err := c.attempts.IsLocked(ctx, client.IP); err == nil && locked && count > 0 {
		c.notify.ClientLockedOut(ctx, client.IP, retryAfter)
	}
}

// appendLedger writes the attempt to the session ledger. A crash or
// failure between attempt tracking and the ledger write is
// acceptable: the ledger is not consulted for lockout logic.
func (c *Coordinator) appendLedger(ctx context.Context, userID uint64, client Client, ok bool) {
	_ = c.ledger.Append(ctx, userID, client.IP, client.UserAgent, c.Now(), ok)
}

func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrExpired
	case errors.Is(err, token.ErrMalformed):
		return ErrMalformed
	default: // bad signature, wrong kind
		return ErrInvalidToken
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
