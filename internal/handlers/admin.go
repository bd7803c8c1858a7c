package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coursehub/internal/models"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"users": users})
}

type updateRoleRequest struct {
	ID   string `json:"id" binding:"required"`
	Role string `json:"role" binding:"required,oneof=user admin"`
}

func (h HandlerSet) AdminUpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.users.UpdateRole(c.Request.Context(), req.ID, models.UserRole(req.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"user": user})
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "User deleted successfully"})
}
