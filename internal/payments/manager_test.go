package payments

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	lastOp  string
	order   GatewayOrder
	payment PaymentDetails
	key     string
	ok      bool
	err     error
}

func (f *fakeProvider) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	f.lastOp = "create"
	return f.order, f.err
}

func (f *fakeProvider) VerifyPayment(ctx context.Context, req VerifyRequest) (bool, error) {
	f.lastOp = "verify"
	return f.ok, f.err
}

func (f *fakeProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	f.lastOp = "lookup"
	return f.payment, f.err
}

func (f *fakeProvider) CheckoutKey() string {
	f.lastOp = "key"
	return f.key
}

func TestManagerCreateOrderUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	razorpay := &fakeProvider{order: GatewayOrder{ID: "order_rzp"}}
	stripe := &fakeProvider{order: GatewayOrder{ID: "pi_stripe"}}

	mgr, err := NewManager(map[string]Provider{
		"razorpay": razorpay,
		"stripe":   stripe,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	order, err := mgr.CreateOrder(ctx, PaymentContext{PreferredProvider: "stripe"}, OrderRequest{Amount: 100, Currency: "USD"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Provider != "stripe" {
		t.Fatalf("expected provider 'stripe', got %q", order.Provider)
	}
	if stripe.lastOp != "create" {
		t.Fatalf("expected stripe provider to handle call")
	}
	if razorpay.lastOp != "" {
		t.Fatalf("expected razorpay provider to remain unused")
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	razorpay := &fakeProvider{order: GatewayOrder{ID: "order_rzp"}}
	stripe := &fakeProvider{order: GatewayOrder{ID: "pi_stripe"}}

	mgr, err := NewManager(
		map[string]Provider{
			"razorpay": razorpay,
			"stripe":   stripe,
		},
		WithCurrencyRoutes(map[string]string{"USD": "stripe"}),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	order, err := mgr.CreateOrder(ctx, PaymentContext{Currency: "usd"}, OrderRequest{Amount: 100, Currency: "USD"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Provider != "stripe" {
		t.Fatalf("expected provider 'stripe', got %q", order.Provider)
	}
	if stripe.lastOp != "create" {
		t.Fatalf("expected stripe provider to handle call")
	}
}

func TestManagerDefaultsToRazorpay(t *testing.T) {
	ctx := context.Background()
	razorpay := &fakeProvider{ok: true}
	stripe := &fakeProvider{}

	mgr, err := NewManager(map[string]Provider{
		"razorpay": razorpay,
		"stripe":   stripe,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	ok, err := mgr.VerifyPayment(ctx, PaymentContext{}, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected verify to delegate to razorpay")
	}
	if razorpay.lastOp != "verify" {
		t.Fatalf("expected razorpay to handle call, handled by %q", razorpay.lastOp)
	}
	if stripe.lastOp != "" {
		t.Fatalf("expected stripe provider to remain unused")
	}
}

func TestManagerSingleProviderNeedsNoRouting(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{payment: PaymentDetails{Provider: "stripe"}}

	mgr, err := NewManager(map[string]Provider{"stripe": stripe})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	details, err := mgr.LookupPayment(ctx, PaymentContext{}, LookupRequest{PaymentID: "pi_123"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stripe.lastOp != "lookup" {
		t.Fatalf("expected lookup to invoke the sole provider")
	}
	if details.Provider != "stripe" {
		t.Fatalf("unexpected provider in details: %q", details.Provider)
	}
}

func TestManagerUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(
		map[string]Provider{"alpha": &fakeProvider{}, "beta": &fakeProvider{}},
		WithDefaultProvider(""),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = mgr.CreateOrder(ctx, PaymentContext{PreferredProvider: "unknown"}, OrderRequest{Amount: 100})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestManagerCheckoutKey(t *testing.T) {
	razorpay := &fakeProvider{key: "rzp_test_key"}
	mgr, err := NewManager(map[string]Provider{"razorpay": razorpay})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	key, err := mgr.CheckoutKey(PaymentContext{})
	if err != nil {
		t.Fatalf("checkout key: %v", err)
	}
	if key != "rzp_test_key" {
		t.Fatalf("expected publishable key, got %q", key)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(map[string]Provider{"bad": nil}); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error when providers empty")
	}
}
