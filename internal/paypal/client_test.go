package paypal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-support/internal/logger"
	"ms-support/internal/models"
	"ms-support/internal/paypal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*paypal.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := paypal.NewClient(server.URL, &http.Client{Timeout: 2 * time.Second}, logger.NewLogger())
	return client, server
}

func TestCreateOrderReturnsApprovalURL(t *testing.T) {
	var gotReq models.CreateOrderRequest
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/paypal/create-order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.CreateOrderResponse{
			ID: "ORDER-1",
			Links: []models.OrderLink{
				{Rel: "self", Href: "https://provider/orders/ORDER-1"},
				{Rel: "approve", Href: "https://provider/approve?token=ORDER-1"},
			},
		})
	})
	defer server.Close()

	order, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{
		SupportType: "Consultation",
		Category:    "Debugging",
		UserEmail:   "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.OrderID)
	assert.Equal(t, "https://provider/approve?token=ORDER-1", order.ApprovalURL)
	assert.Equal(t, "alice@example.com", gotReq.UserEmail)
}

func TestCreateOrderMissingApproveLink(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.CreateOrderResponse{
			ID:    "ORDER-2",
			Links: []models.OrderLink{{Rel: "self", Href: "https://provider/orders/ORDER-2"}},
		})
	})
	defer server.Close()

	_, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{UserEmail: "a@b.c"})
	assert.ErrorIs(t, err, paypal.ErrOrderCreation)
}

func TestCreateOrderMissingID(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.CreateOrderResponse{
			Links: []models.OrderLink{{Rel: "approve", Href: "https://provider/approve"}},
		})
	})
	defer server.Close()

	_, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{UserEmail: "a@b.c"})
	assert.ErrorIs(t, err, paypal.ErrOrderCreation)
}

func TestCreateOrderGatewayError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"provider unavailable"}`, http.StatusBadGateway)
	})
	defer server.Close()

	_, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{UserEmail: "a@b.c"})
	assert.ErrorIs(t, err, paypal.ErrOrderCreation)
}

func TestCaptureOrderSuccess(t *testing.T) {
	var gotReq models.CaptureOrderRequest
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/paypal/capture-order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(models.CaptureOrderResponse{
			Success: true,
			Capture: &models.CaptureDetails{ID: "CAP-3", Status: "COMPLETED"},
		})
	})
	defer server.Close()

	capture, err := client.CaptureOrder(context.Background(), "ORDER-3")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-3", gotReq.OrderID)
	assert.Equal(t, "ORDER-3", capture.OrderID)
	assert.Equal(t, "CAP-3", capture.CaptureID)
}

func TestCaptureOrderDeclined(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.CaptureOrderResponse{
			Success: false,
			Message: "INSTRUMENT_DECLINED",
		})
	})
	defer server.Close()

	_, err := client.CaptureOrder(context.Background(), "ORDER-4")
	assert.ErrorIs(t, err, paypal.ErrCapture)
}

func TestCaptureOrderMissingCaptureID(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.CaptureOrderResponse{Success: true})
	})
	defer server.Close()

	_, err := client.CaptureOrder(context.Background(), "ORDER-5")
	assert.ErrorIs(t, err, paypal.ErrCapture)
}

func TestCaptureOrderGatewayError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"order not found"}`, http.StatusNotFound)
	})
	defer server.Close()

	_, err := client.CaptureOrder(context.Background(), "ORDER-6")
	assert.ErrorIs(t, err, paypal.ErrCapture)
}

func TestCreateOrderHonorsContext(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(models.CreateOrderResponse{ID: "ORDER-7"})
	})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.CreateOrder(ctx, models.CreateOrderRequest{UserEmail: "a@b.c"})
	assert.ErrorIs(t, err, paypal.ErrOrderCreation)
}
