package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coursehub/internal/middleware"
	"coursehub/internal/service"
)

const (
	refreshTokenCookie = "refreshToken"
	expiredCookieAge   = 1
)

func (h HandlerSet) sameSite() http.SameSite {
	switch strings.ToLower(h.cfg.Cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (h HandlerSet) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(name, value, maxAge, "/", h.cfg.Cookie.Domain, h.cfg.Cookie.Secure || h.cfg.IsProduction(), true)
}

func (h HandlerSet) setTokenCookies(c *gin.Context, pair service.TokenPair) {
	h.setCookie(c, middleware.AccessTokenCookie, pair.AccessToken, int(h.tokens.AccessTTL().Seconds()))
	h.setCookie(c, refreshTokenCookie, pair.RefreshToken, int(h.tokens.RefreshTTL().Seconds()))
}

func (h HandlerSet) clearTokenCookies(c *gin.Context) {
	h.setCookie(c, middleware.AccessTokenCookie, "", expiredCookieAge)
	h.setCookie(c, refreshTokenCookie, "", expiredCookieAge)
}
