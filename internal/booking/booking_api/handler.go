package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-support/internal/auth"
	"ms-support/internal/booking"
	"ms-support/internal/booking/qr"
	"ms-support/internal/logger"
	"ms-support/internal/models"
	"ms-support/internal/utils"
)

type Handler struct {
	BookingService *booking.BookingService
	QRGenerator    *qr.QRGenerator
	Logger         *logger.Logger
}

// CreateBookingRequest is the client payload; identity fields come from the
// verified token, never from the body.
type CreateBookingRequest struct {
	CategoryID   string             `json:"category_id"`
	CategoryName string             `json:"category_name"`
	SupportType  models.SupportType `json:"support_type"`
	Notes        string             `json:"notes,omitempty"`
}

// CreateBooking starts a confirmation workflow: creates the provider order
// and returns the approval URL the client must open.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreateBooking: received request")

	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		h.Logger.Error("API", "CreateBooking: no authenticated user in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	bookingReq := models.BookingRequest{
		UserID:       user.ID,
		UserName:     user.Name,
		UserEmail:    user.Email,
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		SupportType:  req.SupportType,
		Notes:        req.Notes,
	}

	started, err := h.BookingService.StartBooking(r.Context(), bookingReq)
	if err != nil {
		h.writeWorkflowError(w, "CreateBooking", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Booking started, approval required", started))
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: order %s created for user %s", started.OrderID, user.ID))
}

// GetBooking returns one booking; users can only read their own records.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	h.Logger.Info("API", fmt.Sprintf("GetBooking: bookingId=%s", bookingID))

	record, err := h.BookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBooking: booking not found: %v", err))
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if record.UserID != auth.UserID(r.Context()) {
		h.Logger.Warn("API", fmt.Sprintf("GetBooking: user %s denied access to booking %s", auth.UserID(r.Context()), bookingID))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBooking: failed to encode response: %v", err))
	}
}

// ListMyBookings returns the caller's bookings newest-first.
func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("ListMyBookings: userId=%s", userID))

	bookings, err := h.BookingService.GetBookingsByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMyBookings: failed to list bookings: %v", err))
		http.Error(w, "Failed to retrieve bookings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bookings); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListMyBookings: failed to encode response: %v", err))
	}
}

// GetTotalBookingsCount is public: the confirmed-booking counter shown on the
// home surface.
func (h *Handler) GetTotalBookingsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.BookingService.TotalConfirmedBookings(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTotalBookingsCount: failed to count bookings: %v", err))
		http.Error(w, "Failed to count bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"count": count}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTotalBookingsCount: failed to encode response: %v", err))
	}
}

// GetBookingQR renders the booking's encrypted QR reference as PNG.
func (h *Handler) GetBookingQR(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	h.Logger.Info("API", fmt.Sprintf("GetBookingQR: bookingId=%s", bookingID))

	record, err := h.BookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if record.UserID != auth.UserID(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	png, err := h.QRGenerator.GenerateEncryptedQR(*record)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBookingQR: failed to generate QR: %v", err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBookingQR: failed to write PNG: %v", err))
	}
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))

	var flowErr *booking.FlowError
	if errors.As(err, &flowErr) {
		utils.WriteJSON(w, flowErr.StatusCode, utils.ErrorResponse(flowErr.PublicError, flowErr.Kind))
		return
	}

	if errors.Is(err, booking.ErrBookingInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// Validation failures and anything else the client can fix
	http.Error(w, err.Error(), http.StatusBadRequest)
}
