// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// coordinator and handlers to distinguish between different failure
// scenarios without inspecting driver error strings.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers
// translate this into the appropriate domain failure (invalid
// credentials, invalid token, ...).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registration collides with an
// existing email address. Handlers should translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
