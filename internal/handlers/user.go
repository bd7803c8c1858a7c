package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me serves the cached session snapshot without touching the database.
func (h HandlerSet) Me(c *gin.Context) {
	user, _ := currentUser(c)
	respond(c, http.StatusOK, gin.H{"user": user})
}

type updateInfoRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) UpdateInfo(c *gin.Context) {
	var req updateInfoRequest
	if !h.bind(c, &req) {
		return
	}
	current, _ := currentUser(c)

	user, err := h.users.UpdateInfo(c.Request.Context(), current.ID, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"user": user})
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	current, _ := currentUser(c)

	user, err := h.users.UpdatePassword(c.Request.Context(), current.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"user": user})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Reset code sent to " + req.Email})
}

type verifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"resetCode" binding:"required,len=6"`
}

func (h HandlerSet) VerifyResetCode(c *gin.Context) {
	var req verifyResetCodeRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.users.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Reset code verified"})
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"resetCode" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	h.clearTokenCookies(c)
	respond(c, http.StatusOK, gin.H{"message": "Password updated, please login again"})
}
