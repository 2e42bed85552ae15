package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRazorpayBaseURL = "https://api.razorpay.com/v1"
	defaultRazorpayTimeout = 15 * time.Second
	maxGatewayResponseBody = 64 * 1024
)

// RazorpayLogger defines the logging contract for Razorpay provider operations.
type RazorpayLogger func(ctx context.Context, event string, fields map[string]any)

// RazorpayProviderConfig configures the RazorpayProvider.
type RazorpayProviderConfig struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	HTTPClient *http.Client
	Logger     RazorpayLogger
	Clock      func() time.Time
}

// RazorpayProvider implements the Provider interface against the Razorpay
// Orders REST API. The key secret never leaves this process; the browser
// widget only ever sees the key id via CheckoutKey.
type RazorpayProvider struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
	logger    RazorpayLogger
	clock     func() time.Time
}

// NewRazorpayProvider constructs a Razorpay Provider using the given configuration.
func NewRazorpayProvider(cfg RazorpayProviderConfig) (*RazorpayProvider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("%w: razorpay key id and secret are required", ErrConfig)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultRazorpayBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRazorpayTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &RazorpayProvider{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    client,
		logger:    logger,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder opens a Razorpay order. The major-to-minor unit conversion
// (rupees to paise) happens here and nowhere else.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	if p == nil {
		return GatewayOrder{}, errors.New("razorpay: provider is nil")
	}
	if req.Amount <= 0 {
		return GatewayOrder{}, fmt.Errorf("razorpay: amount must be positive, got %d", req.Amount)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "INR"
	}

	payload := razorpayOrderRequest{
		Amount:   req.Amount * 100,
		Currency: currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}

	var resp razorpayOrderResponse
	if err := p.do(ctx, http.MethodPost, "/orders", payload, &resp); err != nil {
		p.logger(ctx, "payments.razorpay.order_failed", map[string]any{
			"currency": currency,
			"error":    err.Error(),
		})
		return GatewayOrder{}, err
	}

	p.logger(ctx, "payments.razorpay.order_created", map[string]any{
		"orderId":  resp.ID,
		"currency": resp.Currency,
	})

	return GatewayOrder{
		ID:        resp.ID,
		Provider:  "razorpay",
		Amount:    resp.Amount,
		Currency:  resp.Currency,
		Receipt:   resp.Receipt,
		CreatedAt: p.clock(),
	}, nil
}

// VerifyPayment checks the hosted checkout callback signature. The trust
// decision is the boolean; a mismatch is not an error.
func (p *RazorpayProvider) VerifyPayment(ctx context.Context, req VerifyRequest) (bool, error) {
	if p == nil {
		return false, errors.New("razorpay: provider is nil")
	}
	ok := VerifySignature(req.OrderID, req.PaymentID, req.Signature, p.keySecret)
	if !ok {
		p.logger(ctx, "payments.razorpay.signature_mismatch", map[string]any{
			"orderId":   req.OrderID,
			"paymentId": req.PaymentID,
		})
	}
	return ok, nil
}

type razorpayPaymentResponse struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// LookupPayment fetches payment details for reconciliation.
func (p *RazorpayProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("razorpay: provider is nil")
	}
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		return PaymentDetails{}, errors.New("razorpay: payment id is required")
	}

	var resp razorpayPaymentResponse
	if err := p.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &resp); err != nil {
		return PaymentDetails{}, err
	}

	return PaymentDetails{
		Provider:  "razorpay",
		PaymentID: resp.ID,
		OrderID:   resp.OrderID,
		Status:    razorpayStatus(resp.Status),
		Amount:    resp.Amount,
		Currency:  strings.ToUpper(resp.Currency),
	}, nil
}

// CheckoutKey returns the publishable key id for the browser widget.
func (p *RazorpayProvider) CheckoutKey() string {
	if p == nil {
		return ""
	}
	return p.keyID
}

func (p *RazorpayProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("razorpay: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(p.keyID, p.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxGatewayResponseBody))
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d", ErrGatewayUnavailable, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
		}
	}
	return nil
}

func razorpayStatus(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "captured":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	case "refunded":
		return StatusRefunded
	default:
		return StatusPending
	}
}

var _ Provider = (*RazorpayProvider)(nil)
