package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ms-support/internal/models"
)

// State is the confirmation workflow state. The machine is linear:
// Idle → CreatingOrder → AwaitingApproval → CapturingPayment → Confirmed,
// with Failed reachable from any non-terminal state and Cancelled only from
// AwaitingApproval.
type State string

const (
	StateIdle             State = "idle"
	StateCreatingOrder    State = "creating_order"
	StateAwaitingApproval State = "awaiting_approval"
	StateCapturingPayment State = "capturing_payment"
	StateConfirmed        State = "confirmed"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

var flowTransitions = map[State][]State{
	StateIdle:             {StateCreatingOrder, StateFailed},
	StateCreatingOrder:    {StateAwaitingApproval, StateFailed},
	StateAwaitingApproval: {StateCapturingPayment, StateCancelled, StateFailed},
	StateCapturingPayment: {StateConfirmed, StateFailed},
}

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateCancelled
}

// Redirect markers recognized on the approval surface. These are contract
// constants with the provider's configured return URLs.
const (
	SuccessMarker = "paypal-success"
	CancelMarker  = "paypal-cancel"
)

type navigationResult int

const (
	navigationIgnored navigationResult = iota
	navigationApproved
	navigationCancelled
)

// matchNavigation is the single place where approval-surface URLs are
// classified. Everything that is not a recognized marker passes through.
func matchNavigation(url string) navigationResult {
	switch {
	case strings.Contains(url, SuccessMarker):
		return navigationApproved
	case strings.Contains(url, CancelMarker):
		return navigationCancelled
	default:
		return navigationIgnored
	}
}

// Outcome is the terminal result of one booking attempt.
type Outcome struct {
	State   State
	Booking *models.SupportBooking
	Err     *FlowError
}

var (
	ErrFlowTerminal    = errors.New("flow already reached a terminal state")
	ErrInvalidFlowEdge = errors.New("invalid flow transition")
)

// Flow is one in-flight booking attempt, keyed by the provider order id.
// Navigation events are delivered through a channel and consumed by a single
// goroutine, so state transitions are effectively serialized.
type Flow struct {
	OrderID     string
	ApprovalURL string
	Request     models.BookingRequest

	events chan models.NavigationEvent
	quit   chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	state     State
	result    Outcome
	completed bool
	quitOnce  sync.Once
}

func newFlow(req models.BookingRequest, order *models.OrderCreated) *Flow {
	return &Flow{
		OrderID:     order.OrderID,
		ApprovalURL: order.ApprovalURL,
		Request:     req,
		events:      make(chan models.NavigationEvent, 8),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		state:       StateAwaitingApproval,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) transition(next State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, allowed := range flowTransitions[f.state] {
		if allowed == next {
			f.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidFlowEdge, f.state, next)
}

// Deliver hands a navigation event to the flow. Events after a terminal
// state are dropped: a replayed success redirect must be a no-op.
func (f *Flow) Deliver(event models.NavigationEvent) error {
	f.mu.Lock()
	terminal := f.completed
	f.mu.Unlock()
	if terminal {
		return ErrFlowTerminal
	}

	select {
	case f.events <- event:
		return nil
	default:
		// Buffer full means a burst of duplicate redirects; dropping is safe
		// because the first event already drives the flow to a terminal state.
		return nil
	}
}

// expire signals the consuming goroutine that the approval window closed.
func (f *Flow) expire() {
	f.quitOnce.Do(func() { close(f.quit) })
}

func (f *Flow) complete(outcome Outcome) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.result = outcome
	f.completed = true
	f.mu.Unlock()
	close(f.done)
}

func (f *Flow) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Wait blocks until the flow reaches a terminal state or ctx is done.
func (f *Flow) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.result, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
