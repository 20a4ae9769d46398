package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-support/internal/config"
	"ms-support/internal/logger"
	"ms-support/internal/models"
)

var (
	ErrPayPalAPIError   = errors.New("paypal API error")
	ErrPayPalAuthFailed = errors.New("failed to obtain paypal access token")
)

const tokenCacheKey = "paypal_oauth_token"

// PayPalService wraps the PayPal REST v2 checkout API. Access tokens from the
// client-credentials grant are cached in Redis until shortly before expiry.
type PayPalService struct {
	cfg    config.PaymentConfig
	client *http.Client
	redis  *redis.Client
	log    *logger.Logger
}

func NewPayPalService(cfg config.PaymentConfig, redisClient *redis.Client, log *logger.Logger) (*PayPalService, error) {
	if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
		log.Error("PAYPAL", "PAYPAL_CLIENT_ID / PAYPAL_CLIENT_SECRET not set")
		return nil, ErrPayPalAuthFailed
	}

	log.Info("PAYPAL", fmt.Sprintf("PayPal client initialized for %s", cfg.PayPalAPIBase))
	return &PayPalService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		redis:  redisClient,
		log:    log,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a cached token or fetches a fresh one via the
// client-credentials grant.
func (s *PayPalService) getAccessToken(ctx context.Context) (string, error) {
	if cached, err := s.redis.Get(ctx, tokenCacheKey).Result(); err == nil && cached != "" {
		return cached, nil
	}

	tokenURL := s.cfg.PayPalAPIBase + "/v1/oauth2/token"
	s.log.Debug("PAYPAL", fmt.Sprintf("requesting access token from %s", tokenURL))

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.cfg.PayPalClientID, s.cfg.PayPalClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayPalAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.log.Error("PAYPAL", fmt.Sprintf("token request failed with status %s: %s", resp.Status, string(body)))
		return "", fmt.Errorf("%w: status %s", ErrPayPalAuthFailed, resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayPalAuthFailed, err)
	}

	// Cache with a safety margin so we never present an expired token.
	ttl := time.Duration(token.ExpiresIn-60) * time.Second
	if ttl > 0 {
		if err := s.redis.Set(ctx, tokenCacheKey, token.AccessToken, ttl).Err(); err != nil {
			s.log.Warn("PAYPAL", fmt.Sprintf("failed to cache access token: %v", err))
		}
	}

	return token.AccessToken, nil
}

// ---- PayPal v2 checkout wire types ----

type purchaseAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Description string         `json:"description,omitempty"`
	CustomID    string         `json:"custom_id,omitempty"`
	Amount      purchaseAmount `json:"amount"`
}

type applicationContext struct {
	BrandName  string `json:"brand_name,omitempty"`
	UserAction string `json:"user_action,omitempty"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
}

type createOrderPayload struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderResponse struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Links  []models.OrderLink `json:"links"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder creates a CAPTURE-intent order and returns the provider order
// plus its approval link.
func (s *PayPalService) CreateOrder(ctx context.Context, amount float64, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := createOrderPayload{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{
			{
				Description: fmt.Sprintf("%s support - %s", req.SupportType, req.Category),
				CustomID:    req.UserEmail,
				Amount: purchaseAmount{
					CurrencyCode: s.cfg.Currency,
					Value:        strconv.FormatFloat(amount, 'f', 2, 64),
				},
			},
		},
		ApplicationContext: applicationContext{
			BrandName:  "RV IT Support",
			UserAction: "PAY_NOW",
			ReturnURL:  s.cfg.ReturnURL,
			CancelURL:  s.cfg.CancelURL,
		},
	}

	var order orderResponse
	if err := s.post(ctx, "/v2/checkout/orders", token, payload, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response missing id", ErrPayPalAPIError)
	}

	s.log.LogPayment("CREATE", order.ID, fmt.Sprintf("order created with status %s", order.Status))
	return &models.CreateOrderResponse{ID: order.ID, Links: order.Links}, nil
}

// CaptureOrder captures an approved order and returns the capture id.
func (s *PayPalService) CaptureOrder(ctx context.Context, orderID string) (*models.CaptureDetails, error) {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var capture captureResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := s.post(ctx, path, token, struct{}{}, &capture); err != nil {
		return nil, err
	}

	if capture.Status != "COMPLETED" {
		return nil, fmt.Errorf("%w: capture for order %s returned status %s", ErrPayPalAPIError, orderID, capture.Status)
	}

	captureID := ""
	for _, unit := range capture.PurchaseUnits {
		for _, c := range unit.Payments.Captures {
			captureID = c.ID
			break
		}
	}
	if captureID == "" {
		return nil, fmt.Errorf("%w: capture response for order %s missing capture id", ErrPayPalAPIError, orderID)
	}

	s.log.LogPayment("CAPTURE", orderID, fmt.Sprintf("captured as %s", captureID))
	return &models.CaptureDetails{ID: captureID}, nil
}

func (s *PayPalService) post(ctx context.Context, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PayPalAPIBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPayPalAPIError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		s.log.Error("PAYPAL", fmt.Sprintf("POST %s failed with status %s: %s", path, resp.Status, string(raw)))
		return fmt.Errorf("%w: status %s", ErrPayPalAPIError, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
