package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or gateway confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the gateway reports the payment as captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the gateway reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been refunded.
	StatusRefunded Status = "refunded"
)

var (
	// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	// ErrConfig indicates the provider is missing credentials and cannot operate.
	ErrConfig = errors.New("payments: provider not configured")
	// ErrGatewayUnavailable indicates the gateway could not be reached or
	// answered with a non-success status. Callers may retry with backoff.
	ErrGatewayUnavailable = errors.New("payments: gateway unavailable")
)

// OrderRequest captures the payload required to open a gateway-side payment order.
// Amount is expressed in major currency units; providers own the single
// conversion to the gateway's minor-unit representation.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// GatewayOrder is the gateway-owned payment order returned to the client.
// Amount is in minor units exactly as the gateway reported it.
type GatewayOrder struct {
	ID        string
	Provider  string
	Amount    int64
	Currency  string
	Receipt   string
	CreatedAt time.Time
}

// VerifyRequest carries the callback payload the hosted checkout hands back.
type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
}

// LookupRequest identifies a payment for reconciliation.
type LookupRequest struct {
	PaymentID string
}

// PaymentDetails normalises gateway-specific payment fields for storage.
type PaymentDetails struct {
	Provider  string
	PaymentID string
	OrderID   string
	Status    Status
	Amount    int64
	Currency  string
}

// Provider defines the contract payment gateway adapters implement.
type Provider interface {
	// CreateOrder opens a payment order on the gateway. A fresh receipt token
	// must be supplied per call; providers never retry internally.
	CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error)
	// VerifyPayment decides whether the callback payload can be trusted.
	// The boolean is the trust decision; the error exists only for
	// operational logging and never upgrades an unverified payment.
	VerifyPayment(ctx context.Context, req VerifyRequest) (bool, error)
	LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error)
	// CheckoutKey returns the publishable key the browser widget needs.
	CheckoutKey() string
}

// Manager coordinates provider selection by name or currency route.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = provider
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{
		providers: copyMap,
	}
	if _, ok := copyMap["razorpay"]; ok {
		m.defaultProvider = "razorpay"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

func (m *Manager) resolveProvider(ctx PaymentContext) (string, Provider, error) {
	if m == nil {
		return "", nil, errors.New("payments: manager is nil")
	}
	if len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	if provider := strings.TrimSpace(strings.ToLower(ctx.PreferredProvider)); provider != "" {
		if p, ok := m.providers[provider]; ok {
			return provider, p, nil
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(ctx.Currency))
	if currency != "" && m.currencyRoutes != nil {
		if providerKey, ok := m.currencyRoutes[currency]; ok {
			provider := strings.TrimSpace(strings.ToLower(providerKey))
			if p, ok := m.providers[provider]; ok {
				return provider, p, nil
			}
		}
	}
	if def := strings.TrimSpace(strings.ToLower(m.defaultProvider)); def != "" {
		if p, ok := m.providers[def]; ok {
			return def, p, nil
		}
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateOrder delegates to the resolved provider and stamps its key on the result.
func (m *Manager) CreateOrder(ctx context.Context, paymentCtx PaymentContext, req OrderRequest) (GatewayOrder, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return GatewayOrder{}, err
	}
	order, err := provider.CreateOrder(ctx, req)
	if err != nil {
		return GatewayOrder{}, err
	}
	order.Provider = key
	return order, nil
}

// VerifyPayment delegates to the resolved provider.
func (m *Manager) VerifyPayment(ctx context.Context, paymentCtx PaymentContext, req VerifyRequest) (bool, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return false, err
	}
	return provider.VerifyPayment(ctx, req)
}

// LookupPayment delegates to the resolved provider.
func (m *Manager) LookupPayment(ctx context.Context, paymentCtx PaymentContext, req LookupRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.LookupPayment(ctx, req)
}

// CheckoutKey returns the publishable key of the resolved provider.
func (m *Manager) CheckoutKey(paymentCtx PaymentContext) (string, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return "", err
	}
	return provider.CheckoutKey(), nil
}
