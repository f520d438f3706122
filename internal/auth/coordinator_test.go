package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/civic-auth/internal/model"
	"github.com/iliyamo/civic-auth/internal/repository"
	"github.com/iliyamo/civic-auth/internal/token"
	"github.com/iliyamo/civic-auth/internal/utils"
)

// testClock is a movable clock shared by the signer, the coordinator
// and the fake tracker so every expiry decision sees the same time.
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func newTestClock() *testClock {
	return &testClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

// ---- fakes ----

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uint64]model.User
	lookups int
	nextID  uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uint64]model.User), nextID: 1}
}

func (f *fakeUsers) add(u model.User) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(ctx context.Context, email, password, fullName, role string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	f.byID[id] = model.User{ID: id, Email: email, PasswordHash: hash, FullName: fullName, Role: role, IsActive: true}
	return id, nil
}

func (f *fakeUsers) CreateFromGoogle(ctx context.Context, email, fullName, role, googleID string, verified bool) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	gid := googleID
	f.byID[id] = model.User{ID: id, Email: email, FullName: fullName, Role: role, GoogleID: &gid, IsActive: true, IsVerified: verified}
	return id, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByGoogleID(ctx context.Context, googleID string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) LinkGoogle(ctx context.Context, id uint64, googleID string, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GoogleID = &googleID
	u.IsVerified = u.IsVerified || verified
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) emailLookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

type fakeTokens struct {
	mu   sync.Mutex
	byID map[string]model.RefreshToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{byID: make(map[string]model.RefreshToken)} }

func (f *fakeTokens) Create(ctx context.Context, userID uint64, tokenID string, issuedAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[tokenID] = model.RefreshToken{UserID: userID, TokenID: tokenID, IssuedAt: issuedAt, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokens) Find(ctx context.Context, tokenID string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[tokenID]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) Revoke(ctx context.Context, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[tokenID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.RevokedAt == nil {
		at := time.Now().UTC()
		t.RevokedAt = &at
		f.byID[tokenID] = t
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.byID {
		if t.UserID == userID && t.RevokedAt == nil {
			at := time.Now().UTC()
			t.RevokedAt = &at
			f.byID[id] = t
		}
	}
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []model.SessionEntry
}

func (f *fakeLedger) Append(ctx context.Context, userID uint64, ip, userAgent string, at time.Time, successful bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, model.SessionEntry{
		ID: uint64(len(f.entries) + 1), UserID: userID, IPAddress: ip,
		UserAgent: userAgent, LoginTime: at, IsSuccessful: successful,
	})
	return nil
}

func (f *fakeLedger) CloseLatestOpen(ctx context.Context, userID uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.UserID == userID && e.IsSuccessful && e.LogoutTime == nil {
			f.entries[i].LogoutTime = &at
			return nil
		}
	}
	return nil
}

func (f *fakeLedger) all() []model.SessionEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SessionEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// fakeTracker implements the sliding-window semantics in memory
// against the shared test clock.
type fakeTracker struct {
	mu        sync.Mutex
	clock     *testClock
	threshold int
	window    time.Duration
	counts    map[string]int
	expiry    map[string]time.Time
	fail      bool // simulate backend outage
}

func newFakeTracker(clock *testClock) *fakeTracker {
	return &fakeTracker{
		clock: clock, threshold: 5, window: 900 * time.Second,
		counts: make(map[string]int), expiry: make(map[string]time.Time),
	}
}

func (f *fakeTracker) RecordFailure(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("backend down")
	}
	now := f.clock.Now()
	if exp, ok := f.expiry[key]; ok && now.After(exp) {
		delete(f.counts, key)
	}
	f.counts[key]++
	f.expiry[key] = now.Add(f.window)
	return int64(f.counts[key]), nil
}

func (f *fakeTracker) RecordSuccess(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend down")
	}
	delete(f.counts, key)
	delete(f.expiry, key)
	return nil
}

func (f *fakeTracker) IsLocked(ctx context.Context, key string) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, 0, errors.New("backend down")
	}
	now := f.clock.Now()
	exp, ok := f.expiry[key]
	if !ok || now.After(exp) {
		return false, 0, nil
	}
	if f.counts[key] < f.threshold {
		return false, 0, nil
	}
	return true, exp.Sub(now), nil
}

// ---- harness ----

type harness struct {
	clock   *testClock
	users   *fakeUsers
	tokens  *fakeTokens
	ledger  *fakeLedger
	tracker *fakeTracker
	coord   *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := newTestClock()
	signer := token.NewSigner("coordinator-test-secret")
	signer.Now = clock.Now

	h := &harness{
		clock:   clock,
		users:   newFakeUsers(),
		tokens:  newFakeTokens(),
		ledger:  &fakeLedger{},
		tracker: newFakeTracker(clock),
	}
	h.coord = New(h.users, h.tokens, h.ledger, h.tracker, signer, Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		BcryptCost: 4, // MinCost+ for test speed
	})
	h.coord.Now = clock.Now
	return h
}

func (h *harness) addUser(t *testing.T, email, password string, active bool) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h.users.add(model.User{
		Email: email, PasswordHash: hash, FullName: "Test User",
		Role: model.RoleCitizen, IsActive: active,
	})
}

var testClient = Client{IP: "203.0.113.1", UserAgent: "go-test/1.0"}

// Scenario A: successful login returns both tokens and writes one
// open, successful ledger entry.
func TestLoginSuccess(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	u, pair, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("expected both tokens")
	}
	if u.Email != "amina@example.org" {
		t.Errorf("user = %q", u.Email)
	}

	entries := h.ledger.all()
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if !e.IsSuccessful || e.LogoutTime != nil {
		t.Errorf("entry = %+v, want successful and open", e)
	}
	if e.IPAddress != testClient.IP || e.UserAgent != testClient.UserAgent {
		t.Errorf("client info not recorded: %+v", e)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, _, err := h.coord.Login(ctx, "amina@example.org", "battery staple", testClient)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}

	entries := h.ledger.all()
	if len(entries) != 1 || entries[0].IsSuccessful {
		t.Fatalf("expected one failed ledger entry, got %+v", entries)
	}
	if n := h.tracker.counts[testClient.IP]; n != 1 {
		t.Fatalf("failure count = %d, want 1", n)
	}
}

func TestLoginUnknownEmailIsIndistinguishable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.coord.Login(ctx, "nobody@example.org", "whatever", testClient)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	// Unknown identifier still feeds the lockout counter.
	if n := h.tracker.counts[testClient.IP]; n != 1 {
		t.Fatalf("failure count = %d, want 1", n)
	}
}

// Scenario B: after 5 wrong-password attempts the 6th attempt is
// rejected as locked out before credentials are even checked.
func TestLockoutBlocksCorrectPassword(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := h.coord.Login(ctx, "amina@example.org", "wrong", testClient)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i+1, err)
		}
	}
	lookupsBefore := h.users.emailLookups()

	_, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	var locked *LockedOutError
	if !errors.As(err, &locked) {
		t.Fatalf("got %v, want LockedOutError", err)
	}
	if locked.RetryAfter <= 0 || locked.RetryAfter > 900*time.Second {
		t.Errorf("retry-after = %v, want (0, 900s]", locked.RetryAfter)
	}
	if h.users.emailLookups() != lookupsBefore {
		t.Error("credentials were checked while locked out")
	}

	// A different client key is unaffected.
	other := Client{IP: "198.51.100.9"}
	if _, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", other); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestLockoutExpiresAfterQuietWindow(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.coord.Login(ctx, "amina@example.org", "wrong", testClient)
	}
	h.clock.Advance(901 * time.Second)

	if _, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient); err != nil {
		t.Fatalf("login after quiet window: %v", err)
	}
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		h.coord.Login(ctx, "amina@example.org", "wrong", testClient)
	}
	if _, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, ok := h.tracker.counts[testClient.IP]; ok {
		t.Fatal("counter should be absent after success")
	}
}

// Scenario C: refresh does not rotate the refresh token; two calls a
// second apart both succeed and the second access token expires later.
func TestRefreshWithoutRotation(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, pair, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, first, err := h.coord.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	h.clock.Advance(time.Second)
	_, second, err := h.coord.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if first.Access == second.Access {
		t.Error("expected two distinct access tokens")
	}
	if !second.AccessExpires.After(first.AccessExpires) {
		t.Errorf("second expiry %v not after first %v", second.AccessExpires, first.AccessExpires)
	}
}

// Scenario D and P4: logout revokes the refresh token; revocation is
// terminal, surviving even past the record's natural expiry.
func TestLogoutRevokesRefreshToken(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, pair, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := h.coord.Logout(ctx, pair.Refresh, u.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, _, err := h.coord.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrRevoked) {
		t.Fatalf("refresh after logout: got %v, want ErrRevoked", err)
	}

	// Revoked wins over expired: even after the record's natural
	// expiry passes, a structurally valid token with that identifier
	// still reports Revoked, not Expired. Re-sign the identifier
	// with a fresh exp so the signature layer does not mask the
	// store state.
	claims, err := h.coord.signer.Verify(pair.Refresh, token.KindRefresh)
	if err != nil {
		t.Fatalf("extract tid: %v", err)
	}
	h.clock.Advance(8 * 24 * time.Hour)
	resigned, _, err := h.coord.signer.Issue(token.Claims{
		Subject: u.ID, Kind: token.KindRefresh, TokenID: claims.TokenID,
	}, time.Hour)
	if err != nil {
		t.Fatalf("re-sign: %v", err)
	}
	if _, _, err := h.coord.Refresh(ctx, resigned); !errors.Is(err, ErrRevoked) {
		t.Fatalf("refresh long after logout: got %v, want ErrRevoked", err)
	}
}

func TestLogoutClosesLatestOpenSession(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, first, _ := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	h.clock.Advance(time.Minute)
	_, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if err := h.coord.Logout(ctx, first.Refresh, u.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	entries := h.ledger.all()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].LogoutTime != nil {
		t.Error("older session should remain open")
	}
	if entries[1].LogoutTime == nil {
		t.Error("latest session should be closed")
	}
}

func TestLogoutAbsorbsUnknownToken(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)

	// Garbage and unknown-but-well-signed tokens are both absorbed.
	if err := h.coord.Logout(ctx, "not-a-token", u.ID); err != nil {
		t.Fatalf("logout with garbage: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, pair, _ := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)

	// Kind confusion: an access token presented to refresh.
	if _, _, err := h.coord.Refresh(ctx, pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
	// And a refresh token presented as an access credential.
	if _, _, err := h.coord.Authenticate(ctx, pair.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestRefreshExpiredRecord(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, pair, _ := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)

	h.clock.Advance(8 * 24 * time.Hour)
	if _, _, err := h.coord.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}
}

func TestAuthenticateResolvesPrincipal(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, pair, _ := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)

	got, claims, err := h.coord.Authenticate(ctx, pair.Access)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("principal = %d, want %d", got.ID, u.ID)
	}
	if claims.Role() != model.RoleCitizen {
		t.Errorf("role claim = %q", claims.Role())
	}
}

func TestAuthenticateInactiveUser(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	u, pair, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Disable the account after the token was minted.
	u.IsActive = false
	h.users.add(u)

	if _, _, err := h.coord.Authenticate(ctx, pair.Access); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("got %v, want ErrUserInactive", err)
	}
	if _, _, err := h.coord.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("refresh: got %v, want ErrUserInactive", err)
	}
}

func TestLoginInactiveUserDoesNotFeedLockout(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", false)
	ctx := context.Background()

	_, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if !errors.Is(err, ErrUserInactive) {
		t.Fatalf("got %v, want ErrUserInactive", err)
	}
	if n := h.tracker.counts[testClient.IP]; n != 0 {
		t.Fatalf("failure count = %d, want 0", n)
	}
}

func TestTrackerOutageIsStoreUnavailable(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	h.tracker.fail = true
	_, _, err := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("got %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("store outage must not read as a credential failure")
	}
}

func TestRegisterIssuesTokensAndLedgerEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, pair, err := h.coord.Register(ctx, "new@example.org", "long enough pw", "New User", model.RoleCitizen, testClient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("expected token pair")
	}
	if _, _, err := h.coord.Authenticate(ctx, pair.Access); err != nil {
		t.Fatalf("authenticate fresh registration: %v", err)
	}

	if u.Email != "new@example.org" || u.Role != model.RoleCitizen {
		t.Errorf("registered user = %+v", u)
	}

	if _, _, err := h.coord.Register(ctx, "new@example.org", "other pw", "Dup", model.RoleCitizen, testClient); !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("duplicate register: got %v, want ErrEmailExists", err)
	}
}

type staticVerifier struct {
	ident ExternalIdentity
	err   error
}

func (s staticVerifier) Verify(ctx context.Context, idToken string) (ExternalIdentity, error) {
	return s.ident, s.err
}

func TestLoginWithGoogleCreatesAndLinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	verifier := staticVerifier{ident: ExternalIdentity{
		Subject: "google-sub-1", Email: "amina@example.org", FullName: "Amina", Verified: true,
	}}
	WithIdentity(verifier)(h.coord)

	// First login creates a citizen account.
	u1, pair, err := h.coord.LoginWithGoogle(ctx, "opaque-id-token", testClient)
	if err != nil {
		t.Fatalf("google login: %v", err)
	}
	if u1.Role != model.RoleCitizen || !u1.IsVerified {
		t.Errorf("created user = %+v", u1)
	}
	if pair.Refresh == "" {
		t.Fatal("expected refresh token")
	}

	// Second login resolves the same account by subject.
	u2, _, err := h.coord.LoginWithGoogle(ctx, "opaque-id-token", testClient)
	if err != nil {
		t.Fatalf("second google login: %v", err)
	}
	if u2.ID != u1.ID {
		t.Errorf("resolved different accounts: %d vs %d", u2.ID, u1.ID)
	}

	// A rejected identity token is an invalid token, not a crash.
	WithIdentity(staticVerifier{err: errors.New("bad audience")})(h.coord)
	if _, _, err := h.coord.LoginWithGoogle(ctx, "bad", testClient); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestAccessTokenStringNeverContainsSecret(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "amina@example.org", "correct horse", true)
	ctx := context.Background()

	_, pair, _ := h.coord.Login(ctx, "amina@example.org", "correct horse", testClient)
	if strings.Contains(pair.Access, "coordinator-test-secret") {
		t.Fatal("secret leaked into token string")
	}
}
