package handlers

import (
	"net/http"

	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/repositories"
	"example.com/grocer/services/assistant/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OrderHandler handles order lookup and lifecycle requests
type OrderHandler struct {
	orders *repositories.OrderRepository
	tracer tracing.Tracer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *repositories.OrderRepository, tracer tracing.Tracer) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		tracer: tracer,
	}
}

// HandleGetOrder returns an order with its items
func (h *OrderHandler) HandleGetOrder(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("Failed to get order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// StatusUpdateRequest is the body of a status change request
type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// HandleUpdateOrderStatus moves an order along its lifecycle. Transitions
// are validated; an illegal move is rejected without touching the order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order status"})
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		log.Warn().Err(err).Str("order_id", orderID).Str("status", string(req.Status)).Msg("Status update rejected")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": req.Status})
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/orders/:id", h.HandleGetOrder)
	router.PATCH("/orders/:id/status", h.HandleUpdateOrderStatus)
}
