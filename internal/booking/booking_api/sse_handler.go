package booking_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-support/internal/auth"
	"ms-support/internal/logger"
	"ms-support/internal/models"
	"ms-support/internal/sse"
)

// SSEHandler streams booking confirmations over Server-Sent Events.
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.BookingEventEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.BookingEventEmitter) *SSEHandler {
	return &SSEHandler{
		Logger:       log,
		EventEmitter: emitter,
	}
}

// HandleMyBookings streams the caller's own booking confirmations.
func (h *SSEHandler) HandleMyBookings(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := auth.ExtractUserIDFromJWT(token)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("failed to extract user ID: %v", err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.SubscribeToUser(ctx, userID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"userID\":\"%s\"}\n\n", userID)
	w.(http.Flusher).Flush()

	h.Logger.Info("SSE", fmt.Sprintf("client connected to booking stream for user: %s", userID))
	h.streamBookings(w, r, eventChan, "user "+userID)
}

// HandleCategoryBookings streams confirmations for a support category. Used by
// staff dashboards watching demand per category.
func (h *SSEHandler) HandleCategoryBookings(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if category == "" {
		http.Error(w, "Category is required", http.StatusBadRequest)
		return
	}

	if _, err := auth.ExtractTokenFromRequest(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.SubscribeToCategory(ctx, category)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"category\":\"%s\"}\n\n", category)
	w.(http.Flusher).Flush()

	h.Logger.Info("SSE", fmt.Sprintf("client connected to booking stream for category: %s", category))
	h.streamBookings(w, r, eventChan, "category "+category)
}

func (h *SSEHandler) streamBookings(w http.ResponseWriter, r *http.Request, eventChan chan models.SupportBooking, label string) {
	for {
		select {
		case booking, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("channel closed for %s", label))
				return
			}

			jsonData, err := json.Marshal(booking)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("failed to serialize booking event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: booking\ndata: %s\n\n", jsonData)
			w.(http.Flusher).Flush()

		case <-r.Context().Done():
			h.Logger.Debug("SSE", fmt.Sprintf("client disconnected from %s", label))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-XSS-Protection", "0")
	w.Header().Set("Referrer-Policy", "no-referrer")
}
