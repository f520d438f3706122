// Package attempt tracks failed authentication attempts per client
// key and decides when the login endpoint is locked out.  State
// lives in Redis so a burst of requests from the same client across
// several instances still shares one counter.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the tracker backend is unreachable. The
// coordinator surfaces this as a store failure, never as a lockout
// or credential failure.
var ErrUnavailable = errors.New("attempt tracker unavailable")

// failScript increments the counter and pushes the expiry horizon a
// full window forward on every failure (sliding window). INCR and
// PEXPIRE must happen atomically so concurrent failures from the
// same key never lose an increment or leave a counter without TTL.
var failScript = redis.NewScript(`
    local count = redis.call('INCR', KEYS[1])
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    return count
`)

// stateScript reads the counter together with its remaining TTL in
// one round trip, so a lockout decision sees one consistent snapshot.
var stateScript = redis.NewScript(`
    local count = redis.call('GET', KEYS[1])
    if not count then
        return {0, 0}
    end
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl < 0 then
        ttl = 0
    end
    return {tonumber(count), ttl}
`)

// Tracker is the per-client sliding counter of failed logins.
type Tracker struct {
	rdb       redis.UniversalClient
	threshold int
	window    time.Duration
}

// New builds a Tracker. threshold is the failure count at which a
// key locks; window is how long the count survives after the most
// recent failure.
func New(rdb redis.UniversalClient, threshold int, window time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Tracker{rdb: rdb, threshold: threshold, window: window}
}

func (t *Tracker) key(clientKey string) string {
	return "login:fail:" + clientKey
}

// RecordFailure counts one failed attempt and resets the window TTL
// to a full window from now. Returns the new count.
func (t *Tracker) RecordFailure(ctx context.Context, clientKey string) (int64, error) {
	count, err := failScript.Run(ctx, t.rdb, []string{t.key(clientKey)}, t.window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// RecordSuccess unconditionally clears the counter for the key. The
// key becomes absent, not zero: an untracked client carries no state.
func (t *Tracker) RecordSuccess(ctx context.Context, clientKey string) error {
	if err := t.rdb.Del(ctx, t.key(clientKey)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsLocked reports whether the key has reached the failure threshold
// within the current window, and if so how long until the window
// lapses.
func (t *Tracker) IsLocked(ctx context.Context, clientKey string) (bool, time.Duration, error) {
	vals, err := stateScript.Run(ctx, t.rdb, []string{t.key(clientKey)}).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vals) != 2 {
		return false, 0, fmt.Errorf("%w: unexpected script result %v", ErrUnavailable, vals)
	}
	count, ttlMs := vals[0], vals[1]
	if count < int64(t.threshold) || ttlMs <= 0 {
		return false, 0, nil
	}
	return true, time.Duration(ttlMs) * time.Millisecond, nil
}

// FailureCount returns the current count for a key, zero when the
// key is absent. Used by tests and the admin surface.
func (t *Tracker) FailureCount(ctx context.Context, clientKey string) (int64, error) {
	n, err := t.rdb.Get(ctx, t.key(clientKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
