package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey         string
	PublishableKey string
	Backends       *stripe.Backends
	Logger         StripeLogger
	Clock          func() time.Time
	Intents        stripePaymentIntentAPI
}

// StripeProvider implements the Provider interface using Stripe Payment
// Intents. It covers non-INR checkout; there is no hosted-callback
// signature, so verification is a server-side intent lookup.
type StripeProvider struct {
	intents        stripePaymentIntentAPI
	publishableKey string
	clock          func() time.Time
	logger         StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, fmt.Errorf("%w: stripe api key is required", ErrConfig)
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		intents:        intents,
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateOrder opens a Payment Intent for the requested amount. Stripe takes
// minor units on the wire, so the conversion happens here.
func (p *StripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	if p == nil {
		return GatewayOrder{}, errors.New("stripe: provider is nil")
	}
	if req.Amount <= 0 {
		return GatewayOrder{}, fmt.Errorf("stripe: amount must be positive, got %d", req.Amount)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return GatewayOrder{}, fmt.Errorf("stripe: currency is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount * 100),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	if req.Receipt != "" {
		params.SetIdempotencyKey(req.Receipt)
	}
	if len(req.Notes) > 0 {
		params.Metadata = make(map[string]string, len(req.Notes)+1)
		for k, v := range req.Notes {
			params.Metadata[k] = v
		}
	}
	if req.Receipt != "" {
		if params.Metadata == nil {
			params.Metadata = make(map[string]string, 1)
		}
		params.Metadata["receipt"] = req.Receipt
	}

	intent, err := p.intents.New(params)
	if err != nil {
		p.logger(ctx, "payments.stripe.intent_failed", map[string]any{
			"currency": currency,
			"error":    err.Error(),
		})
		return GatewayOrder{}, fmt.Errorf("%w: create payment intent: %v", ErrGatewayUnavailable, err)
	}

	p.logger(ctx, "payments.stripe.intent_created", map[string]any{
		"paymentIntent": intent.ID,
		"currency":      currency,
	})

	return GatewayOrder{
		ID:        intent.ID,
		Provider:  "stripe",
		Amount:    intent.Amount,
		Currency:  currency,
		Receipt:   req.Receipt,
		CreatedAt: p.clock(),
	}, nil
}

// VerifyPayment trusts a payment only after Stripe itself reports the
// intent as succeeded for the expected order.
func (p *StripeProvider) VerifyPayment(ctx context.Context, req VerifyRequest) (bool, error) {
	if p == nil {
		return false, errors.New("stripe: provider is nil")
	}
	intentID := strings.TrimSpace(req.OrderID)
	if intentID == "" {
		return false, nil
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.intents.Get(intentID, params)
	if err != nil {
		return false, fmt.Errorf("%w: lookup payment intent: %v", ErrGatewayUnavailable, err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		p.logger(ctx, "payments.stripe.intent_not_settled", map[string]any{
			"paymentIntent": intent.ID,
			"status":        intent.Status,
		})
		return false, nil
	}
	return true, nil
}

// LookupPayment retrieves a Stripe Payment Intent for reconciliation.
func (p *StripeProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("stripe: provider is nil")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.intents.Get(req.PaymentID, params)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("%w: lookup payment intent: %v", ErrGatewayUnavailable, err)
	}

	status := StatusPending
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		status = StatusFailed
	}
	if charge := intent.LatestCharge; charge != nil {
		if charge.Refunded || (charge.AmountRefunded >= charge.Amount && charge.Amount > 0) {
			status = StatusRefunded
		}
	}

	return PaymentDetails{
		Provider:  "stripe",
		PaymentID: intent.ID,
		OrderID:   intent.ID,
		Status:    status,
		Amount:    intent.Amount,
		Currency:  strings.ToUpper(string(intent.Currency)),
	}, nil
}

// CheckoutKey returns the publishable key for the browser widget.
func (p *StripeProvider) CheckoutKey() string {
	if p == nil {
		return ""
	}
	return p.publishableKey
}

var _ Provider = (*StripeProvider)(nil)
