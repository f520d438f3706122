package model

import "time"

// Platform roles stored in users.role.  The platform serves three
// kinds of accounts: ordinary citizens, elected representatives and
// platform administrators.
const (
    RoleCitizen        = "CITIZEN"
    RoleRepresentative = "REPRESENTATIVE"
    RoleAdmin          = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lowercase.
//  PasswordHash – bcrypt hashed password.  Empty for Google-only accounts.
//  FullName     – display name.
//  Role         – name of the role (CITIZEN, REPRESENTATIVE or ADMIN).
//  GoogleID     – subject identifier from a verified Google identity (nullable).
//  IsActive     – whether the account is active; inactive accounts cannot authenticate.
//  IsVerified   – whether the email address has been verified.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    FullName     string    // users.full_name
    Role         string    // users.role
    GoogleID     *string   // users.google_id (nullable)
    IsActive     bool      // users.is_active
    IsVerified   bool      // users.is_verified
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// ValidRole reports whether the given role name is one of the
// platform roles.  Registration downgrades unknown roles to
// CITIZEN rather than rejecting the request.
func ValidRole(role string) bool {
    switch role {
    case RoleCitizen, RoleRepresentative, RoleAdmin:
        return true
    }
    return false
}
