// Package queue defines message payloads exchanged over the message broker.
package queue

// AuthEventQueue is the durable queue carrying authentication domain
// events. Downstream consumers send verification email, alert on
// abuse and feed the audit trail without querying the primary
// database.
const AuthEventQueue = "auth.events"

// Event kinds carried in AuthEvent.Kind.
const (
	EventUserRegistered  = "user.registered"
	EventClientLockedOut = "client.locked_out"
)

// AuthEvent is the envelope published for every authentication
// domain event. Fields not relevant to a kind are left zero.
type AuthEvent struct {
	Kind       string `json:"kind"`
	OccurredAt string `json:"occurred_at"`

	// user.registered
	UserID   uint64 `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`

	// client.locked_out
	ClientKey    string `json:"client_key,omitempty"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
}
