package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"coursehub/internal/service"
)

func (h HandlerSet) UsersAnalytics(c *gin.Context) {
	h.analyticsResponse(c, "users", h.analytics.Users)
}

func (h HandlerSet) CoursesAnalytics(c *gin.Context) {
	h.analyticsResponse(c, "courses", h.analytics.Courses)
}

func (h HandlerSet) OrdersAnalytics(c *gin.Context) {
	h.analyticsResponse(c, "orders", h.analytics.Orders)
}

func (h HandlerSet) analyticsResponse(c *gin.Context, key string, load func(context.Context) ([]service.MonthCount, error)) {
	months, err := load(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{key: gin.H{"last12Months": months}})
}
