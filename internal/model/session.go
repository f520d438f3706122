package model

import "time"

// SessionEntry is an append-mostly row in the `login_history` table.
// One entry is written for every login attempt, successful or not.
// A successful entry with a null LogoutTime represents a session that
// is still open; logout closes the most recent open entry for the
// user.  Entries are never deleted by the service — retention is an
// operational concern.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – user the attempt was made for.
//  IPAddress    – client address as seen by the coordinator.
//  UserAgent    – client agent string, may be empty.
//  LoginTime    – when the attempt happened.
//  LogoutTime   – when the session was closed (null while open or for failures).
//  IsSuccessful – whether the attempt authenticated.
type SessionEntry struct {
    ID           uint64     // login_history.id
    UserID       uint64     // login_history.user_id
    IPAddress    string     // login_history.ip_address
    UserAgent    string     // login_history.user_agent
    LoginTime    time.Time  // login_history.login_time
    LogoutTime   *time.Time // login_history.logout_time (nullable)
    IsSuccessful bool       // login_history.is_successful
}

// Open reports whether the entry represents a currently open session.
func (s SessionEntry) Open() bool { return s.IsSuccessful && s.LogoutTime == nil }
