package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-auth/internal/middleware"
	"github.com/iliyamo/civic-auth/internal/model"
	"github.com/iliyamo/civic-auth/internal/repository"
	"github.com/iliyamo/civic-auth/internal/utils"
)

// ProfileHandler serves the authenticated user's own profile and
// login history.  All routes assume the Authenticate middleware has
// placed the resolved user in the context.
type ProfileHandler struct {
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Ledger     *repository.SessionRepo
	BcryptCost int
}

func NewProfileHandler(u *repository.UserRepo, tk *repository.TokenRepo, s *repository.SessionRepo, bcryptCost int) *ProfileHandler {
	return &ProfileHandler{Users: u, Tokens: tk, Ledger: s, BcryptCost: bcryptCost}
}

type profileResp struct {
	ID         uint64    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type updateProfileReq struct {
	FullName string `json:"full_name"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type sessionResp struct {
	ID           uint64     `json:"id"`
	IPAddress    string     `json:"ip_address"`
	UserAgent    string     `json:"user_agent"`
	LoginTime    time.Time  `json:"login_time"`
	LogoutTime   *time.Time `json:"logout_time,omitempty"`
	IsSuccessful bool       `json:"is_successful"`
}

func profileView(u model.User) profileResp {
	return profileResp{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// Me returns the caller's profile.
func (h *ProfileHandler) Me(c echo.Context) error {
	u, ok := c.Get(middleware.CtxUser).(model.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, profileView(u))
}

// UpdateMe updates the caller's mutable profile fields.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	u, ok := c.Get(middleware.CtxUser).(model.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, u.ID, req.FullName); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u.FullName = req.FullName
	return c.JSON(http.StatusOK, profileView(u))
}

// ChangePassword replaces the caller's password after checking the
// old one.  Google-only accounts have no password to check and must
// go through a reset flow instead.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	u, ok := c.Get(middleware.CtxUser).(model.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "old password incorrect"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	// A changed password invalidates every outstanding refresh token;
	// live access tokens ride out their short TTL.
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Sessions lists the caller's login history, newest first.  ?limit=
// caps the page size.
func (h *ProfileHandler) Sessions(c echo.Context) error {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Ledger.ListByUser(ctx, uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sessionResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, sessionResp{
			ID:           e.ID,
			IPAddress:    e.IPAddress,
			UserAgent:    e.UserAgent,
			LoginTime:    e.LoginTime,
			LogoutTime:   e.LogoutTime,
			IsSuccessful: e.IsSuccessful,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}
