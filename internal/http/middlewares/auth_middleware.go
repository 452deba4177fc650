package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/perfeval/internal/actorctx"
	"github.com/geocoder89/perfeval/internal/auth"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/repo"
	"github.com/gin-gonic/gin"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserLoader re-reads the token's user so role and active changes apply on
// the next request rather than at token expiry.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt     TokenVerifier
	revoked RevocationChecker
	users   UserLoader
}

func NewAuthMiddleware(jwt TokenVerifier, revoked RevocationChecker, users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, revoked: revoked, users: users}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		if m.revoked != nil {
			revoked, err := m.revoked.IsRevoked(c.Request.Context(), claims.JTI)
			if err != nil {
				abortWithError(c, http.StatusServiceUnavailable, "session_store_unavailable", "Could not verify session")
				return
			}
			if revoked {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Session has been logged out")
				return
			}
		}

		u, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Account no longer exists")
				return
			}
			abortWithError(c, http.StatusServiceUnavailable, "user_store_unavailable", "Could not load account")
			return
		}
		if !u.Active {
			abortWithError(c, http.StatusForbidden, "account_inactive", "Account is deactivated")
			return
		}

		// The stored role wins over the one captured in the token.
		c.Set(CtxClaims, claims)
		c.Set(CtxUserID, u.ID)
		c.Set(CtxUsername, u.Username)
		c.Set(CtxRole, u.Role)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// Helpers so handlers don't need to know the context keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(CtxUserID)
	return id, id != ""
}

func RoleFromContext(c *gin.Context) (string, bool) {
	role := c.GetString(CtxRole)
	return role, role != ""
}

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
