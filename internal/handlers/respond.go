package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"coursehub/internal/apperr"
	"coursehub/internal/middleware"
	"coursehub/internal/models"
)

// respond writes the success envelope with body merged in.
func respond(c *gin.Context, status int, body gin.H) {
	out := gin.H{"success": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(status, out)
}

func (h HandlerSet) fail(c *gin.Context, err error) {
	status, message := errorStatus(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Int("status", status).
		Msg("request failed")

	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// errorStatus maps err to the client-visible status and message. Only
// apperr errors expose their message.
func errorStatus(err error) (int, string) {
	if e, ok := apperr.As(err); ok {
		if e.Kind == apperr.KindInternal {
			return e.Status, "internal server error"
		}
		return e.Status, e.Message
	}
	return http.StatusInternalServerError, "internal server error"
}

// bind decodes the JSON body into req and reports binding failures as 400.
func (h HandlerSet) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, apperr.Validation(validationMessage(err)).Wrap(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required", "required_without":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s is not a valid email", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be %s characters", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", field))
		}
	}
	return strings.Join(msgs, ", ")
}

// currentUser returns the session snapshot set by the auth middleware.
func currentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(middleware.CurrentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
