package handler

import (
	"context"  // request-scoped timeouts for coordinator calls
	"errors"   // errors.Is / errors.As against the auth taxonomy
	"net/http" // HTTP status codes
	"strconv"  // Retry-After header formatting
	"strings"  // email normalization
	"time"     // timeouts and response timestamps

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/civic-auth/internal/auth"       // coordinator + error taxonomy
	"github.com/iliyamo/civic-auth/internal/middleware" // client key + context keys
	"github.com/iliyamo/civic-auth/internal/model"
	"github.com/iliyamo/civic-auth/internal/repository"
)

// AuthHandler bundles dependencies for auth endpoints.  All token
// lifecycle decisions live in the coordinator; the handler only
// binds requests, derives the client key and maps errors to status
// codes.
type AuthHandler struct {
	Coord *auth.Coordinator
}

func NewAuthHandler(coord *auth.Coordinator) *AuthHandler {
	return &AuthHandler{Coord: coord}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"` // CITIZEN | REPRESENTATIVE | ADMIN
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type googleReq struct {
	IDToken string `json:"id_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func userView(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

func pairView(u model.User, pair auth.TokenPair) authResp {
	return authResp{
		User:    userView(u),
		Access:  tokenPart{Token: pair.Access, Expires: pair.AccessExpires},
		Refresh: tokenPart{Token: pair.Refresh, Expires: pair.RefreshExpires},
	}
}

func clientOf(c echo.Context) auth.Client {
	return auth.Client{
		IP:        middleware.ClientKey(c),
		UserAgent: c.Request().UserAgent(),
	}
}

// Register: validate fields, create the account and return tokens
// immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name required"})
	}
	// Unknown or privileged roles are downgraded, not rejected.
	// ADMIN accounts are provisioned out of band.
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !model.ValidRole(role) || role == model.RoleAdmin {
		role = model.RoleCitizen
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Coord.Register(ctx, req.Email, req.Password, req.FullName, role, clientOf(c))
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return authStatus(c, err)
	}
	return c.JSON(http.StatusCreated, pairView(u, pair))
}

// Login: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Coord.Login(ctx, req.Email, req.Password, clientOf(c))
	if err != nil {
		return authStatus(c, err)
	}
	return c.JSON(http.StatusOK, pairView(u, pair))
}

// Refresh: exchange a live refresh token for a new access token.
// The refresh token itself is returned unchanged; it stays valid
// until expiry or revocation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, grant, err := h.Coord.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return authStatus(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":   userView(u),
		"access": tokenPart{Token: grant.Access, Expires: grant.AccessExpires},
	})
}

// Logout: revoke the presented refresh token and close the caller's
// open session entry.  Requires a valid access token; the refresh
// token in the body may already be dead, that is fine.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid, _ := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Coord.Logout(ctx, req.RefreshToken, uid); err != nil {
		return authStatus(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Google: exchange a verified external identity token for a platform
// session, creating or linking the account as needed.
func (h *AuthHandler) Google(c echo.Context) error {
	var req googleReq
	if err := c.Bind(&req); err != nil || req.IDToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, pair, err := h.Coord.LoginWithGoogle(ctx, req.IDToken, clientOf(c))
	if err != nil {
		return authStatus(c, err)
	}
	return c.JSON(http.StatusOK, pairView(u, pair))
}

// authStatus maps the coordinator's error taxonomy to transport
// responses.  Credential and token failures collapse to one generic
// message each so the boundary leaks nothing about which accounts or
// identifiers exist.
func authStatus(c echo.Context, err error) error {
	var locked *auth.LockedOutError
	switch {
	case errors.As(err, &locked):
		secs := int(locked.RetryAfter.Seconds() + 0.5)
		if secs < 1 {
			secs = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       "too many failed attempts",
			"retry_after": secs,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpired),
		errors.Is(err, auth.ErrRevoked),
		errors.Is(err, auth.ErrMalformed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	case errors.Is(err, auth.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
