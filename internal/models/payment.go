package models

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the provider-side order state. Transitions are linear with
// no reverse edges: Created → Approved → Captured, or a jump to Failed /
// Cancelled from any non-terminal state.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusCaptured  OrderStatus = "captured"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:  {OrderStatusApproved, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusApproved: {OrderStatusCaptured, OrderStatusFailed, OrderStatusCancelled},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCaptured || s == OrderStatusFailed || s == OrderStatusCancelled
}

// PaymentOrder represents the provider-side order the gateway tracks between
// creation and capture.
type PaymentOrder struct {
	OrderID     string      `json:"order_id"`
	ApprovalURL string      `json:"approval_url"`
	Status      OrderStatus `json:"status"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency"`
	UserEmail   string      `json:"user_email"`
	SupportType string      `json:"support_type"`
	Category    string      `json:"category"`
	CaptureID   string      `json:"capture_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PaymentAuditEntry records a financially ambiguous failure keyed by the
// provider order id so support staff can reconcile it manually.
type PaymentAuditEntry struct {
	bun.BaseModel `bun:"table:payment_audit"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Reference string    `bun:"reference" json:"reference"`
	OrderID   string    `bun:"order_id,notnull" json:"order_id"`
	UserID    string    `bun:"user_id" json:"user_id"`
	UserEmail string    `bun:"user_email" json:"user_email"`
	Kind      string    `bun:"kind,notnull" json:"kind"`
	Detail    string    `bun:"detail" json:"detail"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
