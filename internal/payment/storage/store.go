package storage

import (
	"ms-support/internal/models"
)

type Store interface {
	// Order operations
	SaveOrder(order *models.PaymentOrder) error
	GetOrder(orderID string) (*models.PaymentOrder, error)
	UpdateOrderStatus(orderID string, status models.OrderStatus, captureID string) error
	ListOrdersByEmail(email string, limit, offset int) ([]*models.PaymentOrder, error)

	// Health and maintenance
	Close() error
	HealthCheck() error
}
