package sse

import (
	"context"
	"sync"

	"ms-support/internal/models"
)

// BookingEventEmitter manages SSE connections and broadcasts confirmed
// bookings to subscribers, indexed by user and by category.
type BookingEventEmitter struct {
	userClients     map[string][]chan models.SupportBooking
	userClientMutex sync.RWMutex

	categoryClients     map[string][]chan models.SupportBooking
	categoryClientMutex sync.RWMutex
}

func NewBookingEventEmitter() *BookingEventEmitter {
	return &BookingEventEmitter{
		userClients:     make(map[string][]chan models.SupportBooking),
		categoryClients: make(map[string][]chan models.SupportBooking),
	}
}

// SubscribeToUser adds a client listening for a user's booking confirmations.
func (e *BookingEventEmitter) SubscribeToUser(ctx context.Context, userID string) chan models.SupportBooking {
	clientChan := make(chan models.SupportBooking, 10)

	e.userClientMutex.Lock()
	e.userClients[userID] = append(e.userClients[userID], clientChan)
	e.userClientMutex.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeUserClient(userID, clientChan)
	}()

	return clientChan
}

// SubscribeToCategory adds a client listening for confirmations in a category.
func (e *BookingEventEmitter) SubscribeToCategory(ctx context.Context, category string) chan models.SupportBooking {
	clientChan := make(chan models.SupportBooking, 10)

	e.categoryClientMutex.Lock()
	e.categoryClients[category] = append(e.categoryClients[category], clientChan)
	e.categoryClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeCategoryClient(category, clientChan)
	}()

	return clientChan
}

// EmitBookingConfirmed broadcasts a confirmed booking to all subscribers.
func (e *BookingEventEmitter) EmitBookingConfirmed(booking models.SupportBooking) {
	e.userClientMutex.RLock()
	clients := e.userClients[booking.UserID]
	e.userClientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send so a slow client cannot stall the workflow
		select {
		case clientChan <- booking:
		default:
		}
	}

	e.categoryClientMutex.RLock()
	categoryClients := e.categoryClients[booking.Category]
	e.categoryClientMutex.RUnlock()

	for _, clientChan := range categoryClients {
		select {
		case clientChan <- booking:
		default:
		}
	}
}

func (e *BookingEventEmitter) removeUserClient(userID string, clientChan chan models.SupportBooking) {
	e.userClientMutex.Lock()
	defer e.userClientMutex.Unlock()

	clients := e.userClients[userID]
	for i, ch := range clients {
		if ch == clientChan {
			e.userClients[userID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.userClients[userID]) == 0 {
		delete(e.userClients, userID)
	}
}

func (e *BookingEventEmitter) removeCategoryClient(category string, clientChan chan models.SupportBooking) {
	e.categoryClientMutex.Lock()
	defer e.categoryClientMutex.Unlock()

	clients := e.categoryClients[category]
	for i, ch := range clients {
		if ch == clientChan {
			e.categoryClients[category] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.categoryClients[category]) == 0 {
		delete(e.categoryClients, category)
	}
}

// GetUserClientCount returns the number of clients subscribed to a user.
func (e *BookingEventEmitter) GetUserClientCount(userID string) int {
	e.userClientMutex.RLock()
	defer e.userClientMutex.RUnlock()
	return len(e.userClients[userID])
}

// GetCategoryClientCount returns the number of clients subscribed to a category.
func (e *BookingEventEmitter) GetCategoryClientCount(category string) int {
	e.categoryClientMutex.RLock()
	defer e.categoryClientMutex.RUnlock()
	return len(e.categoryClients[category])
}
