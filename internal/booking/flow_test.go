package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-support/internal/models"
)

func TestMatchNavigation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want navigationResult
	}{
		{"success redirect", "https://api.example.com/api/support/paypal-success?token=ORDER-1", navigationApproved},
		{"cancel redirect", "https://api.example.com/api/support/paypal-cancel?token=ORDER-1", navigationCancelled},
		{"marker in path segment", "https://host/deep/paypal-success/extra", navigationApproved},
		{"provider checkout page", "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1", navigationIgnored},
		{"empty url", "", navigationIgnored},
		{"marker-less query", "https://host/return?status=ok", navigationIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchNavigation(tt.url))
		})
	}
}

func TestMatchNavigationSuccessTakesPrecedence(t *testing.T) {
	// A URL carrying both markers counts as success: the success branch is
	// checked first and the order matters for URLs embedding other URLs.
	url := "https://host/paypal-success?back=https://host/paypal-cancel"
	assert.Equal(t, navigationApproved, matchNavigation(url))
}

func TestFlowTransitions(t *testing.T) {
	flow := newFlow(models.BookingRequest{UserID: "u"}, &models.OrderCreated{OrderID: "O1", ApprovalURL: "https://x"})
	assert.Equal(t, StateAwaitingApproval, flow.State())

	require.NoError(t, flow.transition(StateCapturingPayment))
	require.NoError(t, flow.transition(StateConfirmed))

	// Terminal states have no outgoing edges
	err := flow.transition(StateFailed)
	assert.ErrorIs(t, err, ErrInvalidFlowEdge)
}

func TestFlowCancelOnlyFromAwaitingApproval(t *testing.T) {
	flow := newFlow(models.BookingRequest{}, &models.OrderCreated{OrderID: "O2"})

	require.NoError(t, flow.transition(StateCapturingPayment))
	err := flow.transition(StateCancelled)
	assert.ErrorIs(t, err, ErrInvalidFlowEdge)
}

func TestFlowDeliverAfterCompleteIsRejected(t *testing.T) {
	flow := newFlow(models.BookingRequest{}, &models.OrderCreated{OrderID: "O3"})

	flow.complete(Outcome{State: StateCancelled})
	assert.True(t, flow.Completed())

	err := flow.Deliver(models.NavigationEvent{URL: "https://host/paypal-success"})
	assert.ErrorIs(t, err, ErrFlowTerminal)
}

func TestFlowDeliverDropsWhenBufferFull(t *testing.T) {
	flow := newFlow(models.BookingRequest{}, &models.OrderCreated{OrderID: "O4"})

	// Nothing consumes the channel; a redirect burst must not block
	for i := 0; i < 20; i++ {
		assert.NoError(t, flow.Deliver(models.NavigationEvent{URL: "https://host/paypal-success"}))
	}
}

func TestFlowCompleteIsIdempotent(t *testing.T) {
	flow := newFlow(models.BookingRequest{}, &models.OrderCreated{OrderID: "O5"})

	flow.complete(Outcome{State: StateConfirmed})
	flow.complete(Outcome{State: StateFailed}) // must not panic or overwrite

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	outcome, err := flow.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, outcome.State)
}

func TestFlowWaitHonorsContext(t *testing.T) {
	flow := newFlow(models.BookingRequest{}, &models.OrderCreated{OrderID: "O6"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := flow.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateConfirmed.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateAwaitingApproval.Terminal())
	assert.False(t, StateCapturingPayment.Terminal())
}
