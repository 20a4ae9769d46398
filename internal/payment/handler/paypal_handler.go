package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ms-support/internal/logger"
	"ms-support/internal/models"
	"ms-support/internal/payment/storage"
	"ms-support/internal/utils"
)

// PaymentProvider is the slice of the provider client the handlers need.
// *services.PayPalService satisfies it.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, amount float64, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, orderID string) (*models.CaptureDetails, error)
}

type PayPalHandler struct {
	paypalService PaymentProvider
	orderStore    storage.Store
	supportPrice  float64
	currency      string
	logger        *logger.Logger
}

func NewPayPalHandler(paypalService PaymentProvider, orderStore storage.Store, supportPrice float64, currency string, logger *logger.Logger) *PayPalHandler {
	return &PayPalHandler{
		paypalService: paypalService,
		orderStore:    orderStore,
		supportPrice:  supportPrice,
		currency:      currency,
		logger:        logger,
	}
}

// CreateOrder creates a provider order for one support booking. The amount is
// the fixed server-side price; the client cannot influence it.
func (h *PayPalHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	if req.SupportType == "" || req.Category == "" || req.UserEmail == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "supportType, category and userEmail are required"))
		return
	}

	result, err := h.paypalService.CreateOrder(c.Request.Context(), h.supportPrice, req)
	if err != nil {
		h.logger.Error("PAYPAL", fmt.Sprintf("Order creation failed: %v", err))
		c.JSON(http.StatusBadGateway, utils.ErrorResponse("Order creation failed", err.Error()))
		return
	}

	order := &models.PaymentOrder{
		OrderID:     result.ID,
		ApprovalURL: result.ApproveLink(),
		Status:      models.OrderStatusCreated,
		Amount:      h.supportPrice,
		Currency:    h.currency,
		UserEmail:   req.UserEmail,
		SupportType: req.SupportType,
		Category:    req.Category,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.orderStore.SaveOrder(order); err != nil {
		// The provider order exists; losing our record must not lose the id.
		h.logger.Error("PAYPAL", fmt.Sprintf("Failed to persist order %s: %v", result.ID, err))
	}

	c.JSON(http.StatusCreated, result)
}

// CaptureOrder captures an approved order. A replayed capture for an already
// captured order returns the recorded capture instead of calling the provider
// again.
func (h *PayPalHandler) CaptureOrder(c *gin.Context) {
	var req models.CaptureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if req.OrderID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "orderID is required"))
		return
	}

	order, err := h.orderStore.GetOrder(req.OrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Unknown order", "No order record found for this orderID"))
		return
	}

	if order.Status == models.OrderStatusCaptured {
		h.logger.LogPayment("REPLAY", req.OrderID, "order already captured, returning recorded capture")
		c.JSON(http.StatusOK, models.CaptureOrderResponse{
			Success: true,
			Capture: &models.CaptureDetails{ID: order.CaptureID},
			Message: "order already captured",
		})
		return
	}

	// The user approves on the provider's page and the redirect lands on the
	// booking service, so this capture request is the first signal the gateway
	// gets that approval happened. Move the order forward and let the provider
	// reject captures that were never actually approved.
	if order.Status == models.OrderStatusCreated {
		if err := h.orderStore.UpdateOrderStatus(req.OrderID, models.OrderStatusApproved, ""); err != nil {
			h.logger.Error("PAYPAL", fmt.Sprintf("Failed to mark order %s approved: %v", req.OrderID, err))
		}
		order.Status = models.OrderStatusApproved
	}

	if !order.Status.CanTransition(models.OrderStatusCaptured) {
		c.JSON(http.StatusConflict, models.CaptureOrderResponse{
			Success: false,
			Message: fmt.Sprintf("order in state %s cannot be captured", order.Status),
		})
		return
	}

	capture, err := h.paypalService.CaptureOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		h.logger.Error("PAYPAL", fmt.Sprintf("Capture failed for order %s: %v", req.OrderID, err))
		if updateErr := h.orderStore.UpdateOrderStatus(req.OrderID, models.OrderStatusFailed, ""); updateErr != nil {
			h.logger.Error("PAYPAL", fmt.Sprintf("Failed to mark order %s failed: %v", req.OrderID, updateErr))
		}
		c.JSON(http.StatusBadGateway, models.CaptureOrderResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	if err := h.orderStore.UpdateOrderStatus(req.OrderID, models.OrderStatusCaptured, capture.ID); err != nil {
		h.logger.Error("PAYPAL", fmt.Sprintf("Failed to record capture for order %s: %v", req.OrderID, err))
	}

	c.JSON(http.StatusOK, models.CaptureOrderResponse{
		Success: true,
		Capture: capture,
	})
}

// GetOrder returns the gateway's record of a provider order.
func (h *PayPalHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	order, err := h.orderStore.GetOrder(orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Unknown order", "No order record found for this orderID"))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Order retrieved", order))
}

// Health reports gateway liveness and storage health.
func (h *PayPalHandler) Health(c *gin.Context) {
	if err := h.orderStore.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse("Storage unhealthy", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("OK", nil))
}
