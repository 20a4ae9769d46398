package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ms-support/internal/logger"
	"ms-support/internal/models"
)

var (
	ErrOrderCreation = errors.New("order creation failed")
	ErrCapture       = errors.New("order capture failed")
)

// Client talks to the payment gateway's order endpoints. The base URL is
// injected configuration, never hardcoded by callers.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// CreateOrder asks the provider for a new order and returns the order id plus
// the approval redirect URL. Any non-success status, a missing id, or a
// missing approve link is an order-creation failure.
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.OrderCreated, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrOrderCreation, err)
	}

	url := c.baseURL + "/api/paypal/create-order"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrOrderCreation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("PAYPAL", fmt.Sprintf("create-order request failed: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrOrderCreation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		c.log.Error("PAYPAL", fmt.Sprintf("create-order returned status %d: %s", resp.StatusCode, string(respBody)))
		return nil, fmt.Errorf("%w: status %d", ErrOrderCreation, resp.StatusCode)
	}

	var orderResp models.CreateOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrOrderCreation, err)
	}
	if orderResp.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrOrderCreation)
	}

	approvalURL := orderResp.ApproveLink()
	if approvalURL == "" {
		return nil, fmt.Errorf("%w: response missing approve link", ErrOrderCreation)
	}

	c.log.LogPayment("CREATE", orderResp.ID, "order created at provider")
	return &models.OrderCreated{
		OrderID:     orderResp.ID,
		ApprovalURL: approvalURL,
	}, nil
}

// CaptureOrder finalizes the charge for a previously approved order. A
// request error, non-success status, or success=false is a capture failure.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*models.CaptureSucceeded, error) {
	body, err := json.Marshal(models.CaptureOrderRequest{OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrCapture, err)
	}

	url := c.baseURL + "/api/paypal/capture-order"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrCapture, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("PAYPAL", fmt.Sprintf("capture-order request failed for %s: %v", orderID, err))
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		c.log.Error("PAYPAL", fmt.Sprintf("capture-order returned status %d for %s: %s", resp.StatusCode, orderID, string(respBody)))
		return nil, fmt.Errorf("%w: status %d", ErrCapture, resp.StatusCode)
	}

	var captureResp models.CaptureOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&captureResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrCapture, err)
	}
	if !captureResp.Success {
		c.log.Warn("PAYPAL", fmt.Sprintf("capture declined for order %s: %s", orderID, captureResp.Message))
		return nil, fmt.Errorf("%w: provider reported success=false", ErrCapture)
	}
	if captureResp.Capture == nil || captureResp.Capture.ID == "" {
		return nil, fmt.Errorf("%w: response missing capture id", ErrCapture)
	}

	c.log.LogPayment("CAPTURE", orderID, fmt.Sprintf("captured as %s", captureResp.Capture.ID))
	return &models.CaptureSucceeded{
		OrderID:   orderID,
		CaptureID: captureResp.Capture.ID,
	}, nil
}
