package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/perfeval/internal/auth"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/geocoder89/perfeval/internal/observability"
	"github.com/geocoder89/perfeval/internal/session"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*user.Profile, bool)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) bool
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthHandler struct {
	auth    Authenticator
	users   UserGetter
	jwt     *auth.Manager
	revoker session.Revoker
	prom    *observability.Prom
}

func NewAuthHandler(a Authenticator, users UserGetter, jwtManager *auth.Manager, revoker session.Revoker, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		auth:    a,
		users:   users,
		jwt:     jwtManager,
		revoker: revoker,
		prom:    prom,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	profile, ok := h.auth.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if !ok {
		h.countLogin("invalid")
		RespondUnauthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	if !profile.Active {
		h.countLogin("inactive")
		RespondError(ctx, http.StatusForbidden, "account_inactive", "This account has been deactivated.", nil)
		return
	}

	token, claims, err := h.jwt.GenerateAccessToken(profile.ID, profile.Username, profile.Role)
	if err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.countLogin("success")
	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresAt":   claims.ExpiresAt.Time,
		"user":        profile,
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	if err := h.revoker.Revoke(ctx.Request.Context(), claims.JTI, claims.ExpiresAt.Time); err != nil {
		_ = ctx.Error(err)
		RespondInternal(ctx, "Could not end session")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, _ := middlewares.UserIDFromContext(ctx)

	u, err := h.users.GetByID(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, u.Profile())
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	var req ChangePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id, _ := middlewares.UserIDFromContext(ctx)
	if !h.auth.ChangePassword(ctx.Request.Context(), id, req.OldPassword, req.NewPassword) {
		RespondBadRequest(ctx, "Current password is incorrect", nil)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) countLogin(result string) {
	if h.prom != nil {
		h.prom.LoginsTotal.WithLabelValues(result).Inc()
	}
}
