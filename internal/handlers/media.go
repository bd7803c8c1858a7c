package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coursehub/internal/apperr"
	"coursehub/internal/media/sniffer"
	"coursehub/internal/service"
)

type updateAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// UpdateAvatar accepts either a multipart "file" field or a JSON body
// carrying a base64 data uri.
func (h HandlerSet) UpdateAvatar(c *gin.Context) {
	current, _ := currentUser(c)

	data, declared, err := h.readImage(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.users.UpdateAvatar(c.Request.Context(), current, data, declared)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

func (h HandlerSet) readImage(c *gin.Context) ([]byte, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			return nil, "", apperr.Validation("file is required")
		}
		defer file.Close()

		if header.Size > service.MaxImageBytes {
			return nil, "", apperr.Validation("image exceeds 5MB")
		}
		data, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
		if err != nil {
			return nil, "", apperr.Validation("could not read upload")
		}
		return data, sniffer.MimeTypeFromHTTP(http.Header(header.Header)), nil
	}

	var req updateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", apperr.Validation(validationMessage(err)).Wrap(err)
	}
	data, declared, err := sniffer.DecodeDataURI(req.Avatar)
	if err != nil {
		return nil, "", apperr.Validation("avatar must be a base64 data uri").Wrap(err)
	}
	return data, declared, nil
}
