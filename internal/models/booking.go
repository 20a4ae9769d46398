package models

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SupportType enumerates the support engagement kinds a user can book.
type SupportType string

const (
	SupportFullTime     SupportType = "Full Time"
	SupportPartTime     SupportType = "Part Time"
	SupportContract     SupportType = "Contract"
	SupportConsultation SupportType = "Consultation"
	SupportEmergency    SupportType = "Emergency"
)

var supportTypes = map[SupportType]bool{
	SupportFullTime:     true,
	SupportPartTime:     true,
	SupportContract:     true,
	SupportConsultation: true,
	SupportEmergency:    true,
}

func (t SupportType) Valid() bool {
	return supportTypes[t]
}

var (
	ErrInvalidSupportType = errors.New("unknown support type")
	ErrMissingUserEmail   = errors.New("user email is required before an order can be created")
	ErrMissingUserID      = errors.New("user id is required")
	ErrMissingCategory    = errors.New("support category is required")
)

// BookingRequest carries everything the confirmation workflow needs to start.
// It is built per attempt and never persisted itself.
type BookingRequest struct {
	UserID       string      `json:"user_id"`
	UserName     string      `json:"user_name"`
	UserEmail    string      `json:"user_email"`
	CategoryID   string      `json:"category_id"`
	CategoryName string      `json:"category_name"`
	SupportType  SupportType `json:"support_type"`
	Notes        string      `json:"notes,omitempty"`
}

func (r *BookingRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return ErrMissingUserEmail
	}
	if strings.TrimSpace(r.CategoryName) == "" {
		return ErrMissingCategory
	}
	if !r.SupportType.Valid() {
		return ErrInvalidSupportType
	}
	return nil
}

// Booking status values
const (
	BookingConfirmed = "confirmed"
	BookingPending   = "pending"
	BookingCancelled = "cancelled"
)

// Payment status values on the booking record
const (
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// SupportBooking is the durable record confirming a paid support session.
// Written exactly once, only after a successful capture. PaymentOrderID is
// unique so a replayed approval can never produce a second row.
type SupportBooking struct {
	bun.BaseModel `bun:"table:support_bookings"`

	BookingID      string    `bun:"booking_id,pk" json:"booking_id"`
	UserID         string    `bun:"user_id,notnull" json:"user_id"`
	UserName       string    `bun:"user_name" json:"user_name"`
	UserEmail      string    `bun:"user_email,notnull" json:"user_email"`
	SupportType    string    `bun:"support_type,notnull" json:"support_type"`
	Category       string    `bun:"category,notnull" json:"category"`
	Notes          string    `bun:"notes,nullzero" json:"notes,omitempty"`
	Status         string    `bun:"status,notnull" json:"status"`
	PaymentStatus  string    `bun:"payment_status,notnull" json:"payment_status"`
	PaymentAmount  float64   `bun:"payment_amount,notnull" json:"payment_amount"`
	PaymentMethod  string    `bun:"payment_method,notnull" json:"payment_method"`
	PaymentID      string    `bun:"payment_id" json:"payment_id"`
	PaymentOrderID string    `bun:"payment_order_id,unique,notnull" json:"payment_order_id"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// BookingStarted is returned to the client after order creation succeeds; the
// client must send the user to ApprovalURL to authorize payment.
type BookingStarted struct {
	OrderID     string  `json:"order_id"`
	ApprovalURL string  `json:"approval_url"`
	Amount      float64 `json:"amount"`
}

// NavigationEvent is one navigation observed on the approval surface. The
// workflow consumes these and does marker matching in a single place.
type NavigationEvent struct {
	URL string `json:"url"`
}

// BookingEvent is the wire shape published to Kafka for booking lifecycle
// changes and consumed by the notification worker.
type BookingEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	Booking   *SupportBooking `json:"booking,omitempty"`
	Request   *BookingRequest `json:"request,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
