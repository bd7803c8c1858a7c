package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"coursehub/internal/apperr"
	"coursehub/internal/models"
)

// RequireRoles must run after Auth.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		val, exists := c.Get(CurrentUserKey)
		user, ok := val.(models.User)
		if !exists || !ok {
			abort(c, errLoginRequired)
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			abort(c, apperr.Forbidden(fmt.Sprintf("Role: %s is not allowed to access this resource", user.Role)))
			return
		}

		c.Next()
	}
}

