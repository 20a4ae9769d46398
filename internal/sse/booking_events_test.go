package sse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-support/internal/models"
	"ms-support/internal/sse"
)

func confirmedBooking(userID, category string) models.SupportBooking {
	return models.SupportBooking{
		BookingID:      "booking-1",
		UserID:         userID,
		Category:       category,
		Status:         models.BookingConfirmed,
		PaymentOrderID: "ORDER-1",
	}
}

func TestEmitToUserSubscriber(t *testing.T) {
	emitter := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := emitter.SubscribeToUser(ctx, "user-1")
	emitter.EmitBookingConfirmed(confirmedBooking("user-1", "Debugging"))

	select {
	case got := <-ch:
		assert.Equal(t, "booking-1", got.BookingID)
	case <-time.After(time.Second):
		t.Fatal("expected booking on user channel")
	}
}

func TestEmitToCategorySubscriber(t *testing.T) {
	emitter := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := emitter.SubscribeToCategory(ctx, "Debugging")
	emitter.EmitBookingConfirmed(confirmedBooking("user-2", "Debugging"))

	select {
	case got := <-ch:
		assert.Equal(t, "Debugging", got.Category)
	case <-time.After(time.Second):
		t.Fatal("expected booking on category channel")
	}
}

func TestEmitDoesNotCrossUsers(t *testing.T) {
	emitter := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other := emitter.SubscribeToUser(ctx, "user-other")
	emitter.EmitBookingConfirmed(confirmedBooking("user-1", "Debugging"))

	select {
	case got := <-other:
		t.Fatalf("unexpected booking %s delivered to wrong user", got.BookingID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientDoesNotBlockEmit(t *testing.T) {
	emitter := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Nothing drains this channel; once its buffer fills, emits must drop
	// instead of stalling the workflow goroutine.
	emitter.SubscribeToUser(ctx, "user-1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			emitter.EmitBookingConfirmed(confirmedBooking("user-1", "Debugging"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a slow client")
	}
}

func TestSubscriberRemovedOnContextCancel(t *testing.T) {
	emitter := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	emitter.SubscribeToUser(ctx, "user-1")
	emitter.SubscribeToCategory(ctx, "Debugging")
	require.Equal(t, 1, emitter.GetUserClientCount("user-1"))
	require.Equal(t, 1, emitter.GetCategoryClientCount("Debugging"))

	cancel()

	// Cleanup happens in a goroutine
	assert.Eventually(t, func() bool {
		return emitter.GetUserClientCount("user-1") == 0 &&
			emitter.GetCategoryClientCount("Debugging") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	emitter := sse.NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := emitter.SubscribeToUser(ctx, "user-1")
	second := emitter.SubscribeToUser(ctx, "user-1")
	require.Equal(t, 2, emitter.GetUserClientCount("user-1"))

	emitter.EmitBookingConfirmed(confirmedBooking("user-1", "Debugging"))

	for _, ch := range []chan models.SupportBooking{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "booking-1", got.BookingID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive booking")
		}
	}
}
