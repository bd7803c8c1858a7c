package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

func (h HandlerSet) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !h.bind(c, &req) {
		return
	}
	user, _ := currentUser(c)

	order, err := h.orders.CreateOrder(c.Request.Context(), user, req.CourseID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"order": order})
}

func (h HandlerSet) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"orders": orders})
}
