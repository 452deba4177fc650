package middlewares

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the caller has any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	message := "Requires role " + strings.Join(roles, " or ")

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}
		if !slices.Contains(roles, role) {
			abortWithError(c, http.StatusForbidden, "forbidden", message)
			return
		}
		c.Next()
	}
}
