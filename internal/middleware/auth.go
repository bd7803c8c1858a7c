package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"coursehub/internal/apperr"
	"coursehub/internal/models"
)

const (
	CurrentUserKey    = "current_user"
	AccessTokenCookie = "accessToken"
)

var errLoginRequired = apperr.Auth("please login to access this resource")

// Authenticator resolves an access token to the user's session snapshot.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// Auth accepts the access token from its cookie or a bearer header and
// stores the session snapshot under CurrentUserKey.
func Auth(tokens Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			abort(c, errLoginRequired)
			return
		}

		user, err := tokens.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Debug().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("authentication failed")
			abort(c, err)
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func abort(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "internal server error"
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		status, message = e.Status, e.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
