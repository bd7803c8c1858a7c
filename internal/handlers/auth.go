package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"coursehub/internal/models"
	"coursehub/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}

	token, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"message":         fmt.Sprintf("Please check your email: %s to activate your account", req.Email),
		"activationToken": token,
	})
}

type activateRequest struct {
	Token string `json:"activate_token" binding:"required"`
	Code  string `json:"activate_code" binding:"required"`
}

func (h HandlerSet) Activate(c *gin.Context) {
	var req activateRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.auth.Activate(c.Request.Context(), req.Token, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	user, pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendTokens(c, user, pair)
}

type socialAuthRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Avatar string `json:"avatar"`
}

func (h HandlerSet) SocialAuth(c *gin.Context) {
	var req socialAuthRequest
	if !h.bind(c, &req) {
		return
	}

	user, pair, err := h.auth.SocialAuth(c.Request.Context(), service.SocialAuthInput{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendTokens(c, user, pair)
}

func (h HandlerSet) sendTokens(c *gin.Context, user models.User, pair service.TokenPair) {
	h.setTokenCookies(c, pair)
	respond(c, http.StatusOK, gin.H{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken reads the refresh token from its cookie, falling back to
// the request body for clients without a cookie jar.
func (h HandlerSet) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshTokenCookie)
	if token == "" && c.Request.ContentLength > 0 {
		var req refreshRequest
		if !h.bind(c, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		h.fail(c, service.ErrInvalidToken)
		return
	}

	pair, user, err := h.tokens.Refresh(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setTokenCookies(c, pair)
	respond(c, http.StatusOK, gin.H{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, _ := currentUser(c)

	h.clearTokenCookies(c)
	if err := h.auth.Logout(c.Request.Context(), user.ID); err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}
