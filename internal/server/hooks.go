package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type orderStatusHookRequest struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type orderRefundHookRequest struct {
	OrderItemID int64      `json:"order_item_id"`
	RefundID    int64      `json:"refund_id"`
	RefundedAt  *time.Time `json:"refunded_at"`
}

// OrderStatusHook is the host-platform notification that an order
// changed status. Capture decides internally whether the transition
// qualifies; the hook always answers accepted.
func (s *Server) OrderStatusHook(c *gin.Context) {
	var req orderStatusHookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == 0 {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "must be a positive integer"))
		return
	}

	if err := s.captureSvc.OnOrderReachedFulfillingState(c.Request.Context(), req.OrderID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// OrderRefundHook supersedes the active fact for a refunded line item.
func (s *Server) OrderRefundHook(c *gin.Context) {
	var req orderRefundHookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderItemID == 0 || req.RefundID == 0 {
		AbortWithError(c, newValidationError("order_item_id", "invalid_refund", "order_item_id and refund_id are required"))
		return
	}

	refundedAt := time.Now().UTC()
	if req.RefundedAt != nil {
		refundedAt = req.RefundedAt.UTC()
	}

	superseded, err := s.captureSvc.OnOrderItemRefunded(c.Request.Context(), req.OrderItemID, req.RefundID, refundedAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"superseded": superseded})
}

// RunBackfill executes one migration pass and returns its accounting.
func (s *Server) RunBackfill(c *gin.Context) {
	summary, err := s.migrator.Run(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
