package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"ms-support/internal/config"
	"ms-support/internal/logger"
	"ms-support/internal/models"
	"ms-support/internal/utils"
)

type DBLayer interface {
	InsertBooking(ctx context.Context, booking models.SupportBooking) error
	GetBookingByID(ctx context.Context, bookingID string) (*models.SupportBooking, error)
	GetBookingByOrderID(ctx context.Context, orderID string) (*models.SupportBooking, error)
	GetBookingsByUserID(ctx context.Context, userID string) ([]models.SupportBooking, error)
	CountConfirmedBookings(ctx context.Context) (int, error)
	RecordPaymentAudit(ctx context.Context, entry models.PaymentAuditEntry) error
}

type CaptureGuard interface {
	AcquireCapture(ctx context.Context, orderID string) (bool, error)
	RegisterFlow(ctx context.Context, orderID string, ttl time.Duration) error
	ClearFlow(ctx context.Context, orderID string) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type PaymentClient interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.OrderCreated, error)
	CaptureOrder(ctx context.Context, orderID string) (*models.CaptureSucceeded, error)
}

// ConfirmationEmitter pushes confirmed bookings to live subscribers (SSE).
type ConfirmationEmitter interface {
	EmitBookingConfirmed(booking models.SupportBooking)
}

var (
	ErrBookingInProgress = errors.New("a booking attempt is already in progress for this user")
	ErrUnknownOrder      = errors.New("no booking attempt found for this order")
)

// Settings are the workflow knobs pulled from configuration.
type Settings struct {
	SupportPrice   float64
	PaymentTimeout time.Duration
	ApprovalTTL    time.Duration
	Topics         config.TopicConfig
}

// BookingService orchestrates the confirmation workflow: order creation,
// approval tracking, capture, and the write-once booking record.
type BookingService struct {
	DB       DBLayer
	Guard    CaptureGuard
	Kafka    KafkaPublisher
	Payments PaymentClient
	Emitter  ConfirmationEmitter
	Logger   *logger.Logger
	Settings Settings

	mu       sync.Mutex
	flows    map[string]*Flow // by provider order id
	inFlight map[string]bool  // by user id, the server-side double-submit lock
}

func NewBookingService(db DBLayer, guard CaptureGuard, kafka KafkaPublisher, payments PaymentClient, emitter ConfirmationEmitter, log *logger.Logger, settings Settings) *BookingService {
	return &BookingService{
		DB:       db,
		Guard:    guard,
		Kafka:    kafka,
		Payments: payments,
		Emitter:  emitter,
		Logger:   log,
		Settings: settings,
		flows:    make(map[string]*Flow),
		inFlight: make(map[string]bool),
	}
}

// StartBooking validates the request, creates a provider order and registers
// a flow awaiting approval. While a user has an attempt in flight, further
// starts are rejected without touching the provider.
func (s *BookingService) StartBooking(ctx context.Context, req models.BookingRequest) (*models.BookingStarted, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.inFlight[req.UserID] {
		s.mu.Unlock()
		s.Logger.Warn("BOOKING", fmt.Sprintf("rejecting duplicate booking attempt for user %s", req.UserID))
		return nil, ErrBookingInProgress
	}
	s.inFlight[req.UserID] = true
	s.mu.Unlock()

	s.Logger.LogBooking("START", "-", fmt.Sprintf("creating order for user %s (%s / %s)", req.UserID, req.SupportType, req.CategoryName))

	callCtx, cancel := context.WithTimeout(ctx, s.Settings.PaymentTimeout)
	defer cancel()

	order, err := s.Payments.CreateOrder(callCtx, models.CreateOrderRequest{
		SupportType: string(req.SupportType),
		Category:    req.CategoryName,
		UserEmail:   req.UserEmail,
	})
	if err != nil {
		s.clearInFlight(req.UserID)
		s.Logger.Error("BOOKING", fmt.Sprintf("order creation failed for user %s: %v", req.UserID, err))
		return nil, orderCreationError(fmt.Sprintf("order creation failed: %v", err), err)
	}

	flow := newFlow(req, order)

	s.mu.Lock()
	s.flows[flow.OrderID] = flow
	s.mu.Unlock()

	// The flow registration key expires if the user never completes approval;
	// the keyspace-notification subscriber turns that into an expired flow.
	if err := s.Guard.RegisterFlow(ctx, flow.OrderID, s.Settings.ApprovalTTL); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("failed to register flow TTL for order %s: %v", flow.OrderID, err))
	}

	go s.runFlow(flow)

	s.publishEvent(s.Settings.Topics.BookingCreated, models.BookingEvent{
		Type:      "booking.created",
		OrderID:   flow.OrderID,
		Request:   &req,
		Timestamp: time.Now().UTC(),
	})

	s.Logger.LogBooking("AWAIT_APPROVAL", flow.OrderID, "order created, awaiting user approval")
	return &models.BookingStarted{
		OrderID:     flow.OrderID,
		ApprovalURL: flow.ApprovalURL,
		Amount:      s.Settings.SupportPrice,
	}, nil
}

// DispatchNavigation routes a navigation event from the approval surface to
// its flow. The returned flow lets the caller wait for a terminal outcome.
func (s *BookingService) DispatchNavigation(orderID string, event models.NavigationEvent) (*Flow, error) {
	s.mu.Lock()
	flow, ok := s.flows[orderID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownOrder
	}

	if err := flow.Deliver(event); err != nil && !errors.Is(err, ErrFlowTerminal) {
		return nil, err
	}
	return flow, nil
}

// ExpireFlow marks an abandoned approval as failed. Driven by the Redis
// keyspace expiry subscription in main.
func (s *BookingService) ExpireFlow(orderID string) {
	s.mu.Lock()
	flow, ok := s.flows[orderID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.Logger.Warn("BOOKING", fmt.Sprintf("approval window expired for order %s", orderID))
	flow.expire()
}

// FlowState reports the current state of an in-flight attempt.
func (s *BookingService) FlowState(orderID string) (State, bool) {
	s.mu.Lock()
	flow, ok := s.flows[orderID]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	return flow.State(), true
}

// runFlow is the single consumer of a flow's navigation events. Marker
// matching happens in matchNavigation; everything else passes through.
func (s *BookingService) runFlow(flow *Flow) {
	for {
		select {
		case event := <-flow.events:
			switch matchNavigation(event.URL) {
			case navigationApproved:
				s.completeCapture(flow)
				s.unregister(flow)
				return
			case navigationCancelled:
				s.cancelFlow(flow)
				s.unregister(flow)
				return
			default:
				s.Logger.Debug("BOOKING", fmt.Sprintf("ignoring navigation for order %s: %s", flow.OrderID, event.URL))
			}
		case <-flow.quit:
			s.failExpired(flow)
			s.unregister(flow)
			return
		}
	}
}

// completeCapture drives AwaitingApproval → CapturingPayment → Confirmed.
// The Redis guard plus the check-before-write make a replayed approval
// idempotent: at most one SupportBooking row per order id.
func (s *BookingService) completeCapture(flow *Flow) {
	ctx := context.Background()
	orderID := flow.OrderID

	if err := flow.transition(StateCapturingPayment); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("illegal capture transition for order %s: %v", orderID, err))
		return
	}
	s.Logger.LogBooking("CAPTURE", orderID, "user approved, capturing payment")

	acquired, err := s.Guard.AcquireCapture(ctx, orderID)
	if err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("capture guard unavailable for order %s, relying on unique index: %v", orderID, err))
		acquired = true
	}
	if !acquired {
		// Another delivery of the same approval already captured this order.
		existing, err := s.DB.GetBookingByOrderID(ctx, orderID)
		if err == nil && existing != nil {
			s.Logger.LogBooking("REPLAY", orderID, "duplicate approval, returning existing booking")
			s.finishConfirmed(flow, existing, false)
			return
		}
		s.failCapture(flow, fmt.Sprintf("capture already in progress for order %s", orderID), nil)
		return
	}

	// Check-before-write: a booking row for this order means the capture
	// already settled in a previous attempt.
	if existing, err := s.DB.GetBookingByOrderID(ctx, orderID); err == nil && existing != nil {
		s.Logger.LogBooking("REPLAY", orderID, "booking already recorded, skipping capture")
		s.finishConfirmed(flow, existing, false)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.Settings.PaymentTimeout)
	defer cancel()

	capture, err := s.Payments.CaptureOrder(callCtx, orderID)
	if err != nil {
		s.failCapture(flow, fmt.Sprintf("capture failed for order %s: %v", orderID, err), err)
		return
	}

	req := flow.Request
	record := models.SupportBooking{
		BookingID:      utils.GenerateBookingRef(),
		UserID:         req.UserID,
		UserName:       req.UserName,
		UserEmail:      req.UserEmail,
		SupportType:    string(req.SupportType),
		Category:       req.CategoryName,
		Notes:          req.Notes,
		Status:         models.BookingConfirmed,
		PaymentStatus:  models.PaymentCompleted,
		PaymentAmount:  s.Settings.SupportPrice,
		PaymentMethod:  "paypal",
		PaymentID:      capture.CaptureID,
		PaymentOrderID: orderID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.DB.InsertBooking(ctx, record); err != nil {
		// The charge settled but the confirmation write did not. This is the
		// ambiguous financial state; it must land in the audit table.
		s.failCapture(flow, fmt.Sprintf("booking write failed after capture %s for order %s: %v", capture.CaptureID, orderID, err), err)
		return
	}

	s.finishConfirmed(flow, &record, true)
}

func (s *BookingService) finishConfirmed(flow *Flow, record *models.SupportBooking, fresh bool) {
	if err := flow.transition(StateConfirmed); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("illegal confirm transition for order %s: %v", flow.OrderID, err))
	}

	if fresh {
		s.publishEvent(s.Settings.Topics.BookingConfirmed, models.BookingEvent{
			Type:      "booking.confirmed",
			OrderID:   flow.OrderID,
			Booking:   record,
			Timestamp: time.Now().UTC(),
		})
		if s.Emitter != nil {
			s.Emitter.EmitBookingConfirmed(*record)
		}
		s.Logger.LogBooking("CONFIRMED", flow.OrderID, fmt.Sprintf("booking %s confirmed with payment %s", record.BookingID, record.PaymentID))
	}

	flow.complete(Outcome{State: StateConfirmed, Booking: record})
}

func (s *BookingService) failCapture(flow *Flow, internal string, cause error) {
	flowErr := captureOrPersistError(internal, cause)
	s.Logger.Error("BOOKING", internal)

	entry := models.PaymentAuditEntry{
		Reference: utils.GenerateAuditRef(),
		OrderID:   flow.OrderID,
		UserID:    flow.Request.UserID,
		UserEmail: flow.Request.UserEmail,
		Kind:      KindCaptureOrPersistFailed,
		Detail:    internal,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.DB.RecordPaymentAudit(context.Background(), entry); err != nil {
		s.Logger.Error("AUDIT", fmt.Sprintf("failed to record payment audit for order %s: %v", flow.OrderID, err))
	}

	s.publishEvent(s.Settings.Topics.PaymentFailed, models.BookingEvent{
		Type:      "payment.failed",
		OrderID:   flow.OrderID,
		Request:   &flow.Request,
		Reason:    flowErr.PublicError,
		Timestamp: time.Now().UTC(),
	})

	if err := flow.transition(StateFailed); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("illegal fail transition for order %s: %v", flow.OrderID, err))
	}
	flow.complete(Outcome{State: StateFailed, Err: flowErr})
}

func (s *BookingService) cancelFlow(flow *Flow) {
	if err := flow.transition(StateCancelled); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("illegal cancel transition for order %s: %v", flow.OrderID, err))
	}
	s.Logger.LogBooking("CANCELLED", flow.OrderID, "user cancelled on the approval page")

	s.publishEvent(s.Settings.Topics.BookingCancelled, models.BookingEvent{
		Type:      "booking.cancelled",
		OrderID:   flow.OrderID,
		Request:   &flow.Request,
		Reason:    "user cancelled",
		Timestamp: time.Now().UTC(),
	})

	flow.complete(Outcome{State: StateCancelled})
}

func (s *BookingService) failExpired(flow *Flow) {
	if err := flow.transition(StateFailed); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("illegal expire transition for order %s: %v", flow.OrderID, err))
	}

	s.publishEvent(s.Settings.Topics.PaymentFailed, models.BookingEvent{
		Type:      "payment.failed",
		OrderID:   flow.OrderID,
		Request:   &flow.Request,
		Reason:    "approval window expired",
		Timestamp: time.Now().UTC(),
	})

	flow.complete(Outcome{State: StateFailed, Err: &FlowError{
		Kind:          KindApprovalExpired,
		StatusCode:    http.StatusGatewayTimeout,
		PublicError:   "The payment approval window expired. Please start a new booking.",
		InternalError: fmt.Sprintf("approval window expired for order %s", flow.OrderID),
	}})
}

func (s *BookingService) unregister(flow *Flow) {
	s.mu.Lock()
	delete(s.flows, flow.OrderID)
	delete(s.inFlight, flow.Request.UserID)
	s.mu.Unlock()

	if err := s.Guard.ClearFlow(context.Background(), flow.OrderID); err != nil {
		s.Logger.Debug("BOOKING", fmt.Sprintf("failed to clear flow key for order %s: %v", flow.OrderID, err))
	}
}

func (s *BookingService) clearInFlight(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

func (s *BookingService) publishEvent(topic string, event models.BookingEvent) {
	event.EventID = uuid.NewString()
	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal %s event for order %s: %v", event.Type, event.OrderID, err))
		return
	}
	if err := s.Kafka.Publish(topic, event.OrderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish %s event for order %s: %v", event.Type, event.OrderID, err))
	}
}

// ---------------- READS ----------------

func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.SupportBooking, error) {
	return s.DB.GetBookingByID(ctx, bookingID)
}

func (s *BookingService) GetBookingsByUser(ctx context.Context, userID string) ([]models.SupportBooking, error) {
	return s.DB.GetBookingsByUserID(ctx, userID)
}

func (s *BookingService) TotalConfirmedBookings(ctx context.Context) (int, error) {
	return s.DB.CountConfirmedBookings(ctx)
}
