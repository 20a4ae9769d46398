package booking_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-support/internal/booking"
	"ms-support/internal/models"
	"ms-support/internal/utils"
)

// PayPalSuccess handles the provider's return redirect after the user
// approved the payment. The order id travels in the "token" query parameter.
// The handler only forwards the navigation; marker matching and capture run
// inside the flow goroutine.
func (h *Handler) PayPalSuccess(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("token")
	if orderID == "" {
		http.Error(w, "Missing token parameter", http.StatusBadRequest)
		return
	}
	h.Logger.LogPayment("RETURN", orderID, "success redirect received")

	flow, err := h.BookingService.DispatchNavigation(orderID, models.NavigationEvent{URL: r.URL.String()})
	if err != nil {
		h.writeNavigationError(w, orderID, err)
		return
	}

	outcome, err := flow.Wait(r.Context())
	if err != nil {
		h.Logger.Error("PAYMENT", fmt.Sprintf("timed out waiting for order %s to settle: %v", orderID, err))
		http.Error(w, "Payment is still being processed", http.StatusGatewayTimeout)
		return
	}

	switch outcome.State {
	case booking.StateConfirmed:
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Your support booking is confirmed", outcome.Booking))
	case booking.StateCancelled:
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking cancelled", nil))
	default:
		status := http.StatusInternalServerError
		public := "Payment could not be completed"
		if outcome.Err != nil {
			status = outcome.Err.StatusCode
			public = outcome.Err.PublicError
		}
		utils.WriteJSON(w, status, utils.ErrorResponse(public, fmt.Sprintf("order %s failed", orderID)))
	}
}

// PayPalCancel handles the provider's cancel redirect. The flow records the
// cancellation and no capture or database write happens.
func (h *Handler) PayPalCancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("token")
	if orderID == "" {
		http.Error(w, "Missing token parameter", http.StatusBadRequest)
		return
	}
	h.Logger.LogPayment("RETURN", orderID, "cancel redirect received")

	flow, err := h.BookingService.DispatchNavigation(orderID, models.NavigationEvent{URL: r.URL.String()})
	if err != nil {
		h.writeNavigationError(w, orderID, err)
		return
	}

	outcome, err := flow.Wait(r.Context())
	if err != nil {
		http.Error(w, "Cancellation is still being processed", http.StatusGatewayTimeout)
		return
	}

	if outcome.State == booking.StateCancelled {
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking cancelled, you have not been charged", nil))
		return
	}
	// A success redirect racing a cancel can land here; report the real state.
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Booking attempt finished as %s", outcome.State), outcome.Booking))
}

func (h *Handler) writeNavigationError(w http.ResponseWriter, orderID string, err error) {
	if errors.Is(err, booking.ErrUnknownOrder) {
		h.Logger.Warn("PAYMENT", fmt.Sprintf("redirect for unknown order %s", orderID))
		http.Error(w, "No booking attempt found for this order", http.StatusNotFound)
		return
	}
	h.Logger.Error("PAYMENT", fmt.Sprintf("failed to dispatch navigation for order %s: %v", orderID, err))
	http.Error(w, "Failed to process payment redirect", http.StatusInternalServerError)
}
