package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/payments"
	"github.com/Roshan-Lodhi/Shoplane/internal/platform/auth"
	"github.com/Roshan-Lodhi/Shoplane/internal/platform/httpx"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes the payment boundary endpoints for authenticated users.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
	limiter  rateLimiter
}

// CheckoutHandlersOption customises checkout handlers before construction.
type CheckoutHandlersOption func(*CheckoutHandlers)

// WithCheckoutRateLimiter throttles order creation per user.
func WithCheckoutRateLimiter(limiter rateLimiter) CheckoutHandlersOption {
	return func(h *CheckoutHandlers) {
		h.limiter = limiter
	}
}

// WithCheckoutRateLimit throttles order creation to limit requests per
// window for each user.
func WithCheckoutRateLimit(limit int, window time.Duration) CheckoutHandlersOption {
	return func(h *CheckoutHandlers) {
		h.limiter = newSimpleRateLimiter(limit, window, nil)
	}
}

// NewCheckoutHandlers constructs checkout handlers guarded by Firebase authentication.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, opts ...CheckoutHandlersOption) *CheckoutHandlers {
	h := &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireFirebaseAuth())
	}
	group.Get("/payment-key", h.paymentKey)
	group.Post("/order", h.createPaymentOrder)
	group.Post("/verify", h.verifyPayment)
	group.Post("/finalize", h.finalizeOrder)
}

type createPaymentOrderRequest struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	DiscountCode string `json:"discountCode"`
}

type paymentOrderResponse struct {
	OrderID      string `json:"orderId"`
	Provider     string `json:"provider"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Key          string `json:"key"`
	Receipt      string `json:"receipt"`
	Subtotal     int64  `json:"subtotal"`
	Discount     int64  `json:"discount"`
	PayableTotal int64  `json:"payableTotal"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpayOrderId"`
	PaymentID string `json:"razorpayPaymentId"`
	Signature string `json:"razorpaySignature"`
	Currency  string `json:"currency"`
}

type verifyPaymentResponse struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"orderId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
}

type finalizeOrderRequest struct {
	OrderID         string                 `json:"razorpayOrderId"`
	PaymentID       string                 `json:"razorpayPaymentId"`
	Signature       string                 `json:"razorpaySignature"`
	Currency        string                 `json:"currency"`
	DiscountCode    string                 `json:"discountCode"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
}

type shippingAddressPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *CheckoutHandlers) paymentKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, ok := h.requireIdentity(ctx, w); !ok {
		return
	}

	key, err := h.checkout.PaymentKey(ctx, r.URL.Query().Get("currency"))
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"key": key})
}

func (h *CheckoutHandlers) createPaymentOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many payment attempts; retry later", http.StatusTooManyRequests))
		return
	}

	var req createPaymentOrderRequest
	if !h.decodeBody(ctx, w, r, &req, false) {
		return
	}

	order, err := h.checkout.CreatePaymentOrder(ctx, services.CreatePaymentOrderCommand{
		UserID:       identity.UID,
		Currency:     strings.TrimSpace(req.Currency),
		DiscountCode: strings.TrimSpace(req.DiscountCode),
		ClientAmount: req.Amount,
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, paymentOrderResponse{
		OrderID:      order.GatewayOrderID,
		Provider:     order.Provider,
		Amount:       order.Amount,
		Currency:     order.Currency,
		Key:          order.Key,
		Receipt:      order.Receipt,
		Subtotal:     order.Subtotal,
		Discount:     order.Discount.Amount,
		PayableTotal: order.PayableTotal,
	})
}

func (h *CheckoutHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req verifyPaymentRequest
	if !h.decodeBody(ctx, w, r, &req, true) {
		return
	}

	result, err := h.checkout.VerifyPayment(ctx, services.VerifyPaymentCommand{
		UserID:    identity.UID,
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
		Currency:  strings.TrimSpace(req.Currency),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	// A failed verification is a trust decision, not a transport error: the
	// caller gets {success:false} in the documented shape.
	writeJSONResponse(w, http.StatusOK, verifyPaymentResponse{
		Success:   result.Verified,
		OrderID:   result.OrderID,
		PaymentID: result.PaymentID,
	})
}

func (h *CheckoutHandlers) finalizeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req finalizeOrderRequest
	if !h.decodeBody(ctx, w, r, &req, true) {
		return
	}

	order, err := h.checkout.FinalizeOrder(ctx, services.FinalizeOrderCommand{
		UserID:       identity.UID,
		OrderID:      strings.TrimSpace(req.OrderID),
		PaymentID:    strings.TrimSpace(req.PaymentID),
		Signature:    strings.TrimSpace(req.Signature),
		Currency:     strings.TrimSpace(req.Currency),
		DiscountCode: strings.TrimSpace(req.DiscountCode),
		ShippingAddress: domain.ShippingAddress{
			Name:    strings.TrimSpace(req.ShippingAddress.Name),
			Email:   strings.TrimSpace(req.ShippingAddress.Email),
			Phone:   strings.TrimSpace(req.ShippingAddress.Phone),
			Address: strings.TrimSpace(req.ShippingAddress.Address),
		},
	})
	if err != nil {
		// A replayed finalize is answered with the order the first call
		// recorded, not with an error.
		if errors.Is(err, services.ErrOrderAlreadyProcessed) && order.ID != "" {
			writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
			return
		}
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *CheckoutHandlers) decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any, required bool) bool {
	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		if errors.Is(err, errEmptyBody) && !required {
			return true
		}
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutAmountMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("amount_mismatch", "amount does not match cart total", http.StatusConflict))
	case errors.Is(err, services.ErrPaymentVerificationFailed):
		httpx.WriteError(ctx, w, httpx.NewError("verification_failed", "payment signature could not be verified", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderAlreadyProcessed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_already_processed", "payment has already been recorded", http.StatusConflict))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount code not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountInactive),
		errors.Is(err, services.ErrDiscountOutOfWindow),
		errors.Is(err, services.ErrDiscountUsageExceeded),
		errors.Is(err, services.ErrDiscountBelowMinimum):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_applicable", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, payments.ErrGatewayUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("gateway_unavailable", "payment gateway unavailable", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
