package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Roshan-Lodhi/Shoplane/internal/platform/auth"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

type stubCheckoutService struct {
	keyFunc       func(ctx context.Context, currency string) (string, error)
	createFunc    func(ctx context.Context, cmd services.CreatePaymentOrderCommand) (services.PaymentOrder, error)
	verifyFunc    func(ctx context.Context, cmd services.VerifyPaymentCommand) (services.PaymentVerification, error)
	finalizeFunc  func(ctx context.Context, cmd services.FinalizeOrderCommand) (services.Order, error)
	reconcileFunc func(ctx context.Context, cmd services.GatewayEventCommand) (services.GatewayEventResult, error)
}

func (s *stubCheckoutService) PaymentKey(ctx context.Context, currency string) (string, error) {
	if s.keyFunc != nil {
		return s.keyFunc(ctx, currency)
	}
	return "rzp_test_key", nil
}

func (s *stubCheckoutService) CreatePaymentOrder(ctx context.Context, cmd services.CreatePaymentOrderCommand) (services.PaymentOrder, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.PaymentOrder{}, nil
}

func (s *stubCheckoutService) VerifyPayment(ctx context.Context, cmd services.VerifyPaymentCommand) (services.PaymentVerification, error) {
	if s.verifyFunc != nil {
		return s.verifyFunc(ctx, cmd)
	}
	return services.PaymentVerification{}, nil
}

func (s *stubCheckoutService) FinalizeOrder(ctx context.Context, cmd services.FinalizeOrderCommand) (services.Order, error) {
	if s.finalizeFunc != nil {
		return s.finalizeFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubCheckoutService) ReconcileGatewayEvent(ctx context.Context, cmd services.GatewayEventCommand) (services.GatewayEventResult, error) {
	if s.reconcileFunc != nil {
		return s.reconcileFunc(ctx, cmd)
	}
	return services.GatewayEventResult{}, nil
}

var _ services.CheckoutService = (*stubCheckoutService)(nil)

func authenticated(req *http.Request, uid string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
}

func TestCheckoutHandlersCreateOrderSuccess(t *testing.T) {
	router := chi.NewRouter()
	var captured services.CreatePaymentOrderCommand
	service := &stubCheckoutService{
		createFunc: func(ctx context.Context, cmd services.CreatePaymentOrderCommand) (services.PaymentOrder, error) {
			captured = cmd
			return services.PaymentOrder{
				GatewayOrderID: "order_MkzJROAminsrbb",
				Provider:       "razorpay",
				Amount:         90000,
				Currency:       "INR",
				Key:            "rzp_test_key",
				Receipt:        "receipt_1709294400000",
				Subtotal:       1000,
				PayableTotal:   900,
			}, nil
		},
	}

	handler := NewCheckoutHandlers(nil, service)
	handler.Routes(router)

	payload := `{"amount":900,"currency":"INR","discountCode":"SAVE10"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/order", bytes.NewBufferString(payload)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.UserID != "user-1" || captured.ClientAmount != 900 || captured.DiscountCode != "SAVE10" {
		t.Fatalf("unexpected command %+v", captured)
	}

	var resp paymentOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OrderID != "order_MkzJROAminsrbb" || resp.Amount != 90000 || resp.Key != "rzp_test_key" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCheckoutHandlersCreateOrderUnauthenticated(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/order", bytes.NewBufferString(`{"amount":900}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCheckoutHandlersCreateOrderAmountMismatch(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		createFunc: func(context.Context, services.CreatePaymentOrderCommand) (services.PaymentOrder, error) {
			return services.PaymentOrder{}, services.ErrCheckoutAmountMismatch
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodPost, "/order", bytes.NewBufferString(`{"amount":1}`)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "amount_mismatch" {
		t.Fatalf("expected amount_mismatch error, got %v", body["error"])
	}
}

func TestCheckoutHandlersCreateOrderRateLimited(t *testing.T) {
	router := chi.NewRouter()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(1, time.Minute, func() time.Time { return now })
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{}, WithCheckoutRateLimiter(limiter))
	handler.Routes(router)

	for i := 0; i < 2; i++ {
		req := authenticated(httptest.NewRequest(http.MethodPost, "/order", bytes.NewBufferString(`{"amount":900}`)), "user-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if i == 0 && rr.Code != http.StatusOK {
			t.Fatalf("first request expected 200, got %d", rr.Code)
		}
		if i == 1 && rr.Code != http.StatusTooManyRequests {
			t.Fatalf("second request expected 429, got %d", rr.Code)
		}
	}
}

func TestCheckoutHandlersVerifySuccess(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		verifyFunc: func(ctx context.Context, cmd services.VerifyPaymentCommand) (services.PaymentVerification, error) {
			if cmd.OrderID != "order_abc" || cmd.PaymentID != "pay_xyz" {
				t.Fatalf("unexpected command %+v", cmd)
			}
			if cmd.Currency != "USD" {
				t.Fatalf("expected currency USD propagated, got %q", cmd.Currency)
			}
			return services.PaymentVerification{Verified: true, OrderID: cmd.OrderID, PaymentID: cmd.PaymentID}, nil
		},
	})
	handler.Routes(router)

	payload := `{"razorpayOrderId":"order_abc","razorpayPaymentId":"pay_xyz","razorpaySignature":"deadbeef","currency":"USD"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(payload)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp verifyPaymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.PaymentID != "pay_xyz" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCheckoutHandlersVerifyRejection(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		verifyFunc: func(ctx context.Context, cmd services.VerifyPaymentCommand) (services.PaymentVerification, error) {
			return services.PaymentVerification{Verified: false}, nil
		},
	})
	handler.Routes(router)

	payload := `{"razorpayOrderId":"order_abc","razorpayPaymentId":"pay_xyz","razorpaySignature":"forged"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(payload)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp verifyPaymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected success false, got %+v", resp)
	}
}

func TestCheckoutHandlersFinalizeSuccess(t *testing.T) {
	router := chi.NewRouter()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		finalizeFunc: func(ctx context.Context, cmd services.FinalizeOrderCommand) (services.Order, error) {
			if cmd.ShippingAddress.Name != "Roshan" {
				t.Fatalf("expected shipping address propagated, got %+v", cmd.ShippingAddress)
			}
			return services.Order{
				ID:          "ord-1",
				OrderNumber: "ORD1709294400000042",
				UserID:      cmd.UserID,
				TotalAmount: 900,
				Currency:    "INR",
				Status:      "processing",
				PaymentID:   cmd.PaymentID,
				CreatedAt:   created,
			}, nil
		},
	})
	handler.Routes(router)

	payload := `{
		"razorpayOrderId":"order_abc",
		"razorpayPaymentId":"pay_xyz",
		"razorpaySignature":"deadbeef",
		"discountCode":"SAVE10",
		"shippingAddress":{"name":"Roshan","email":"roshan@example.com","phone":"9999999999","address":"42 MG Road"}
	}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/finalize", bytes.NewBufferString(payload)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.OrderNumber != "ORD1709294400000042" || resp.Order.Status != "processing" {
		t.Fatalf("unexpected response %+v", resp.Order)
	}
}

func TestCheckoutHandlersFinalizeDuplicate(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		finalizeFunc: func(context.Context, services.FinalizeOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderAlreadyProcessed
		},
	})
	handler.Routes(router)

	payload := `{"razorpayOrderId":"order_abc","razorpayPaymentId":"pay_xyz","razorpaySignature":"deadbeef"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/finalize", bytes.NewBufferString(payload)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "payment_already_processed" {
		t.Fatalf("expected payment_already_processed error, got %v", body["error"])
	}
}

func TestCheckoutHandlersFinalizeReplayReturnsExistingOrder(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		finalizeFunc: func(context.Context, services.FinalizeOrderCommand) (services.Order, error) {
			return services.Order{
				ID:          "ord-1",
				OrderNumber: "ORD1709294400000042",
				UserID:      "user-1",
				Status:      "processing",
				PaymentID:   "pay_xyz",
			}, services.ErrOrderAlreadyProcessed
		},
	})
	handler.Routes(router)

	payload := `{"razorpayOrderId":"order_abc","razorpayPaymentId":"pay_xyz","razorpaySignature":"deadbeef"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/finalize", bytes.NewBufferString(payload)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.ID != "ord-1" || resp.Order.PaymentID != "pay_xyz" {
		t.Fatalf("expected the recorded order back, got %+v", resp.Order)
	}
}

func TestCheckoutHandlersPaymentKey(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCheckoutHandlers(nil, &stubCheckoutService{
		keyFunc: func(ctx context.Context, currency string) (string, error) {
			if currency != "INR" {
				t.Fatalf("expected currency INR, got %q", currency)
			}
			return "rzp_live_key", nil
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/payment-key?currency=INR", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["key"] != "rzp_live_key" {
		t.Fatalf("unexpected key %q", resp["key"])
	}
}
