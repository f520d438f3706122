// Package token creates and verifies the signed JWTs used as access
// and refresh credentials.  Verification failures are reported as
// typed errors so callers branch on data instead of library error
// strings.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "kind" claim.  A token minted for one
// use must never be accepted for the other.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Verification failure kinds.
var (
	ErrMalformed    = errors.New("token: malformed")
	ErrBadSignature = errors.New("token: invalid signature")
	ErrExpired      = errors.New("token: expired")
	ErrWrongKind    = errors.New("token: wrong kind")
)

// Claims is the structured payload embedded in every signed token.
// Required claims are typed fields; convenience claims (role, email)
// ride in the Extra map and are validated once at decode time.
//
// Wire keys: sub, kind, iat, exp and, for refresh tokens only, tid.
type Claims struct {
	Subject   uint64            // sub
	Kind      string            // kind ("access" or "refresh")
	TokenID   string            // tid, set only on refresh tokens
	IssuedAt  time.Time         // iat
	ExpiresAt time.Time         // exp
	Extra     map[string]string // any additional string claims (role, email)
}

// Role returns the role convenience claim, or "" when absent.
func (c Claims) Role() string { return c.Extra["role"] }

// Email returns the email convenience claim, or "" when absent.
func (c Claims) Email() string { return c.Extra["email"] }

// Signer issues and verifies HS256 JWTs.  It holds one active
// signing key plus zero or more previous keys that are still
// accepted for verification during a key-rotation grace period.
// Only the active key ever signs.
type Signer struct {
	active   []byte
	previous [][]byte

	// Now supplies the clock for iat/exp math.  Overridden in tests.
	Now func() time.Time
}

// NewSigner builds a Signer from the resolved key material.  The
// first key signs and verifies; any previous keys only verify.
func NewSigner(active string, previous ...string) *Signer {
	s := &Signer{
		active: []byte(active),
		Now:    func() time.Time { return time.Now().UTC() },
	}
	for _, p := range previous {
		if p != "" {
			s.previous = append(s.previous, []byte(p))
		}
	}
	return s
}

// Issue signs the given claims with the active key.  IssuedAt and
// ExpiresAt are computed here from the signer clock and the ttl; any
// values already present on the claims are overwritten.  It returns
// the compact token string and its expiry.
func (s *Signer) Issue(c Claims, ttl time.Duration) (string, time.Time, error) {
	now := s.Now().UTC()
	exp := now.Add(ttl)

	mc := jwt.MapClaims{
		"sub":  c.Subject,
		"kind": c.Kind,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	if c.TokenID != "" {
		mc["tid"] = c.TokenID
	}
	for k, v := range c.Extra {
		mc[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.active)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a compact token string and checks that
// its kind matches the expected use.  Signature is checked against
// the active key first, then against each previous key.  Failures
// map to exactly one of ErrMalformed, ErrBadSignature, ErrExpired or
// ErrWrongKind.
func (s *Signer) Verify(raw, expectKind string) (Claims, error) {
	mc, err := s.parse(raw, s.active)
	for i := 0; err != nil && errors.Is(err, ErrBadSignature) && i < len(s.previous); i++ {
		mc, err = s.parse(raw, s.previous[i])
	}
	if err != nil {
		return Claims{}, err
	}

	c, err := fromMapClaims(mc)
	if err != nil {
		return Claims{}, err
	}
	if c.Kind != expectKind {
		return Claims{}, ErrWrongKind
	}
	return c, nil
}

// parse runs the jwt library against a single key and collapses its
// error taxonomy onto ours.  The expiry check uses the signer clock
// so tests can move time deterministically.
func (s *Signer) parse(raw string, key []byte) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.Now),
	)
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	switch {
	case err == nil && tok.Valid:
		mc, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return nil, ErrMalformed
		}
		return mc, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		// Expiry is validated after the signature, so an expired
		// result implies the signature itself was good.
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrBadSignature
	default:
		return nil, ErrMalformed
	}
}

// fromMapClaims validates the decoded payload once and builds the
// fixed Claims record.  Missing or mistyped required claims are
// malformed tokens, not panics further down the call chain.
func fromMapClaims(mc jwt.MapClaims) (Claims, error) {
	sub, ok := claimUint64(mc["sub"])
	if !ok {
		return Claims{}, ErrMalformed
	}
	kind, _ := mc["kind"].(string)
	if kind != KindAccess && kind != KindRefresh {
		return Claims{}, ErrMalformed
	}
	iat, ok := claimUnix(mc["iat"])
	if !ok {
		return Claims{}, ErrMalformed
	}
	exp, ok := claimUnix(mc["exp"])
	if !ok {
		return Claims{}, ErrMalformed
	}

	c := Claims{
		Subject:   sub,
		Kind:      kind,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}
	if tid, ok := mc["tid"].(string); ok {
		c.TokenID = tid
	}
	if kind == KindRefresh && c.TokenID == "" {
		return Claims{}, ErrMalformed
	}
	for k, v := range mc {
		switch k {
		case "sub", "kind", "iat", "exp", "tid":
			continue
		}
		if s, ok := v.(string); ok {
			if c.Extra == nil {
				c.Extra = make(map[string]string)
			}
			c.Extra[k] = s
		}
	}
	return c, nil
}

// claimUint64 converts a decoded numeric claim to uint64.  JSON
// numbers decode as float64; some issuers encode numeric strings.
func claimUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

// claimUnix converts a decoded unix-seconds claim to time.Time.
func claimUnix(v interface{}) (time.Time, bool) {
	n, ok := v.(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(n), 0).UTC(), true
}
