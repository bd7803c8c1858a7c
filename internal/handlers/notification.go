package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) ListNotifications(c *gin.Context) {
	notifications, err := h.notifications.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"notifications": notifications})
}

func (h HandlerSet) UpdateNotification(c *gin.Context) {
	notifications, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"notifications": notifications})
}
