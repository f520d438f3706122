package middleware

// identity.go defines helper functions shared across middleware files.
// ClientKey derives the rate-limit key for a request; currentUserID
// feeds the generic token-bucket key builder.

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientKey returns the client identity used for lockout tracking
// and the session ledger: the first X-Forwarded-For entry when the
// header is present, else the raw connection address.  Spoofable by
// any client that controls the header unless a trusted reverse
// proxy strips it upstream.
func ClientKey(c echo.Context) string {
	if xff := strings.TrimSpace(c.Request().Header.Get("X-Forwarded-For")); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// currentUserID extracts the authenticated user id from context for
// rate-limit key building.  Returns "anon" when no user is
// authenticated.
func currentUserID(c echo.Context) string {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
