package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
	Environment  string            `json:"environment"`
}

// Health pings every dependency and reports 503 when any of them fails.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
	defer cancel()

	resp := healthResponse{
		Status:       "ok",
		Dependencies: make(map[string]string, len(h.checks)),
		Environment:  h.cfg.Environment,
	}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Error().Err(err).Str("dependency", name).Msg("health check failed")
			resp.Dependencies[name] = "error"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	c.JSON(status, resp)
}
