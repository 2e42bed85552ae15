package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/payments"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

// CheckoutLogger defines the logging contract for checkout operations.
type CheckoutLogger func(ctx context.Context, event string, fields map[string]any)

// PaymentGateway is the slice of the payment manager the checkout flow needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, paymentCtx payments.PaymentContext, req payments.OrderRequest) (payments.GatewayOrder, error)
	VerifyPayment(ctx context.Context, paymentCtx payments.PaymentContext, req payments.VerifyRequest) (bool, error)
	CheckoutKey(paymentCtx payments.PaymentContext) (string, error)
}

// CheckoutServiceDeps bundles collaborators required to construct a CheckoutService.
type CheckoutServiceDeps struct {
	Carts           repositories.CartRepository
	Discounts       repositories.DiscountRepository
	Orders          repositories.OrderRepository
	Gateway         PaymentGateway
	Events          OrderEventPublisher
	Clock           func() time.Time
	Logger          CheckoutLogger
	IDFactory       func() string
	OrderNumberRand func() int
	DefaultCurrency string
}

type checkoutService struct {
	carts           repositories.CartRepository
	discounts       repositories.DiscountRepository
	orders          repositories.OrderRepository
	gateway         PaymentGateway
	events          OrderEventPublisher
	clock           func() time.Time
	logger          CheckoutLogger
	newID           func() string
	orderNumberRand func() int
	defaultCurrency string
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService assembles the payment boundary service.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil || deps.Discounts == nil || deps.Orders == nil || deps.Gateway == nil {
		return nil, ErrCheckoutDependenciesMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.IDFactory
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	orderNumberRand := deps.OrderNumberRand
	if orderNumberRand == nil {
		orderNumberRand = func() int { return rand.Intn(1000) }
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	return &checkoutService{
		carts:           deps.Carts,
		discounts:       deps.Discounts,
		orders:          deps.Orders,
		gateway:         deps.Gateway,
		events:          deps.Events,
		clock:           func() time.Time { return clock().UTC() },
		logger:          logger,
		newID:           newID,
		orderNumberRand: orderNumberRand,
		defaultCurrency: currency,
	}, nil
}

// PaymentKey returns the publishable key for the provider serving the currency.
func (s *checkoutService) PaymentKey(ctx context.Context, currency string) (string, error) {
	if s == nil || s.gateway == nil {
		return "", ErrCheckoutDependenciesMissing
	}
	return s.gateway.CheckoutKey(payments.PaymentContext{Currency: s.currencyOrDefault(currency)})
}

// CreatePaymentOrder recomputes the chargeable total from the stored cart
// and opens a gateway order for it. The client's announced amount is only a
// cross-check; a mismatch aborts before any gateway call.
func (s *checkoutService) CreatePaymentOrder(ctx context.Context, cmd CreatePaymentOrderCommand) (PaymentOrder, error) {
	if s == nil || s.gateway == nil {
		return PaymentOrder{}, ErrCheckoutDependenciesMissing
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return PaymentOrder{}, ErrCheckoutInvalidInput
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return PaymentOrder{}, err
	}
	subtotal := cart.Subtotal()
	if subtotal <= 0 {
		return PaymentOrder{}, ErrCheckoutCartEmpty
	}

	now := s.clock()
	var applied AppliedDiscount
	if code := strings.TrimSpace(cmd.DiscountCode); code != "" {
		discount, err := s.resolveDiscount(ctx, code)
		if err != nil {
			return PaymentOrder{}, err
		}
		applied, err = evaluateDiscount(discount, subtotal, now)
		if err != nil {
			return PaymentOrder{}, err
		}
	}

	payable := subtotal - applied.Amount
	if payable < 0 {
		payable = 0
	}
	if cmd.ClientAmount != 0 && cmd.ClientAmount != payable {
		s.logger(ctx, "checkout.amount_mismatch", map[string]any{
			"userId":       userID,
			"clientAmount": cmd.ClientAmount,
			"payable":      payable,
		})
		return PaymentOrder{}, ErrCheckoutAmountMismatch
	}
	if payable == 0 {
		return PaymentOrder{}, ErrCheckoutInvalidInput
	}

	currency := s.currencyOrDefault(cmd.Currency)
	receipt := fmt.Sprintf("receipt_%d", now.UnixMilli())

	order, err := s.gateway.CreateOrder(ctx,
		payments.PaymentContext{Currency: currency},
		payments.OrderRequest{
			Amount:   payable,
			Currency: currency,
			Receipt:  receipt,
			Notes:    map[string]string{"userId": userID},
		},
	)
	if err != nil {
		return PaymentOrder{}, err
	}

	key, err := s.gateway.CheckoutKey(payments.PaymentContext{PreferredProvider: order.Provider, Currency: currency})
	if err != nil {
		return PaymentOrder{}, err
	}

	s.logger(ctx, "checkout.payment_order_created", map[string]any{
		"userId":         userID,
		"gatewayOrderId": order.ID,
		"provider":       order.Provider,
		"payable":        payable,
	})

	return PaymentOrder{
		GatewayOrderID: order.ID,
		Provider:       order.Provider,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Key:            key,
		Receipt:        order.Receipt,
		Subtotal:       subtotal,
		Discount:       applied,
		PayableTotal:   payable,
	}, nil
}

// VerifyPayment checks the callback payload. The decision is authoritative:
// handlers never override a false result.
func (s *checkoutService) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (PaymentVerification, error) {
	if s == nil || s.gateway == nil {
		return PaymentVerification{}, ErrCheckoutDependenciesMissing
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if orderID == "" || paymentID == "" || strings.TrimSpace(cmd.Signature) == "" {
		return PaymentVerification{}, ErrCheckoutInvalidInput
	}

	ok, err := s.gateway.VerifyPayment(ctx, payments.PaymentContext{Currency: s.currencyOrDefault(cmd.Currency)}, payments.VerifyRequest{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: cmd.Signature,
	})
	if err != nil {
		s.logger(ctx, "checkout.verify_error", map[string]any{
			"orderId":   orderID,
			"paymentId": paymentID,
			"error":     err.Error(),
		})
		return PaymentVerification{}, err
	}
	if !ok {
		s.logger(ctx, "checkout.verify_rejected", map[string]any{
			"orderId":   orderID,
			"paymentId": paymentID,
		})
	}
	return PaymentVerification{
		Verified:  ok,
		OrderID:   orderID,
		PaymentID: paymentID,
	}, nil
}

// FinalizeOrder re-verifies the payment, rebuilds the total from the stored
// cart, and commits the order together with the discount usage increment.
// A second call with the same payment id is a no-op: it returns the already
// recorded order alongside ErrOrderAlreadyProcessed and consumes nothing.
func (s *checkoutService) FinalizeOrder(ctx context.Context, cmd FinalizeOrderCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrCheckoutDependenciesMissing
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, ErrCheckoutInvalidInput
	}

	verification, err := s.VerifyPayment(ctx, VerifyPaymentCommand{
		UserID:    userID,
		OrderID:   cmd.OrderID,
		PaymentID: cmd.PaymentID,
		Signature: cmd.Signature,
		Currency:  cmd.Currency,
	})
	if err != nil {
		return Order{}, err
	}
	if !verification.Verified {
		return Order{}, ErrPaymentVerificationFailed
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	subtotal := cart.Subtotal()
	if subtotal <= 0 {
		return Order{}, ErrCheckoutCartEmpty
	}

	now := s.clock()
	var applied AppliedDiscount
	var consume *repositories.OrderFinalizeDiscount
	if code := strings.TrimSpace(cmd.DiscountCode); code != "" {
		discount, err := s.resolveDiscount(ctx, code)
		if err != nil {
			return Order{}, err
		}
		applied, err = evaluateDiscount(discount, subtotal, now)
		if err != nil {
			return Order{}, err
		}
		consume = &repositories.OrderFinalizeDiscount{
			DiscountID: discount.ID,
			MaxUses:    discount.MaxUses,
		}
	}

	total := subtotal - applied.Amount
	if total < 0 {
		total = 0
	}

	order := Order{
		ID:              s.newID(),
		OrderNumber:     s.orderNumber(now),
		UserID:          userID,
		TotalAmount:     total,
		Currency:        s.currencyOrDefault(cmd.Currency),
		Status:          domain.OrderStatusProcessing,
		Items:           cart.Items,
		ShippingAddress: cmd.ShippingAddress,
		PaymentID:       verification.PaymentID,
		GatewayOrderID:  verification.OrderID,
		DiscountCode:    applied.Code,
		DiscountAmount:  applied.Amount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, err := s.orders.Finalize(ctx, order, consume)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicatePayment):
			return s.alreadyProcessedOrder(ctx, userID, verification.PaymentID)
		case errors.Is(err, repositories.ErrDiscountExhausted):
			return Order{}, ErrDiscountUsageExceeded
		}
		return Order{}, err
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		// The order is committed; a stale cart is recoverable.
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:        "order.finalized",
		OrderID:     stored.ID,
		OrderNumber: stored.OrderNumber,
		UserID:      stored.UserID,
		Status:      string(stored.Status),
		PaymentID:   stored.PaymentID,
		TotalAmount: stored.TotalAmount,
		Currency:    stored.Currency,
		OccurredAt:  now,
	})

	s.logger(ctx, "checkout.order_finalized", map[string]any{
		"orderId":     stored.ID,
		"orderNumber": stored.OrderNumber,
		"paymentId":   stored.PaymentID,
		"total":       stored.TotalAmount,
	})
	return stored, nil
}

// ReconcileGatewayEvent looks up the gateway notification's payment in the
// order ledger. The client-driven finalize flow is the system of record;
// captures that already landed are acknowledged as known, captures that have
// not landed yet are reported unmatched, and failures against a recorded
// order are flagged loudly for operator follow-up.
func (s *checkoutService) ReconcileGatewayEvent(ctx context.Context, cmd GatewayEventCommand) (GatewayEventResult, error) {
	if s == nil || s.orders == nil {
		return GatewayEventResult{}, ErrCheckoutDependenciesMissing
	}
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if paymentID == "" || strings.TrimSpace(cmd.EventType) == "" {
		return GatewayEventResult{}, ErrCheckoutInvalidInput
	}

	order, err := s.orders.FindByPaymentID(ctx, paymentID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			s.logger(ctx, "checkout.webhook_unmatched", map[string]any{
				"event":          cmd.EventType,
				"paymentId":      paymentID,
				"gatewayOrderId": cmd.OrderID,
			})
			return GatewayEventResult{Known: false}, nil
		}
		return GatewayEventResult{}, err
	}

	if cmd.Amount != 0 && order.TotalAmount*100 != cmd.Amount {
		s.logger(ctx, "checkout.webhook_amount_mismatch", map[string]any{
			"event":          cmd.EventType,
			"orderId":        order.ID,
			"paymentId":      paymentID,
			"reportedAmount": cmd.Amount,
			"orderAmount":    order.TotalAmount,
		})
	}
	if cmd.EventType == "payment.failed" {
		s.logger(ctx, "checkout.webhook_failed_for_recorded_order", map[string]any{
			"orderId":   order.ID,
			"paymentId": paymentID,
		})
	} else {
		s.logger(ctx, "checkout.webhook_reconciled", map[string]any{
			"event":     cmd.EventType,
			"orderId":   order.ID,
			"paymentId": paymentID,
		})
	}

	return GatewayEventResult{
		Known:   true,
		OrderID: order.ID,
		Status:  order.Status,
	}, nil
}

// alreadyProcessedOrder resolves the order a duplicate finalize collided
// with. The existing order rides along with ErrOrderAlreadyProcessed so the
// caller can answer a replay idempotently, but only for the owning user.
func (s *checkoutService) alreadyProcessedOrder(ctx context.Context, userID, paymentID string) (Order, error) {
	existing, err := s.orders.FindByPaymentID(ctx, paymentID)
	if err != nil || existing.UserID != userID {
		return Order{}, ErrOrderAlreadyProcessed
	}
	s.logger(ctx, "checkout.finalize_replayed", map[string]any{
		"orderId":   existing.ID,
		"paymentId": paymentID,
	})
	return existing, ErrOrderAlreadyProcessed
}

func (s *checkoutService) loadCart(ctx context.Context, userID string) (Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Cart{}, ErrCheckoutCartEmpty
		}
		return Cart{}, err
	}
	return cart, nil
}

func (s *checkoutService) resolveDiscount(ctx context.Context, code string) (DiscountCode, error) {
	discount, err := s.discounts.FindByCode(ctx, code)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return DiscountCode{}, ErrDiscountNotFound
		}
		return DiscountCode{}, err
	}
	return discount, nil
}

func (s *checkoutService) currencyOrDefault(currency string) string {
	if trimmed := strings.ToUpper(strings.TrimSpace(currency)); trimmed != "" {
		return trimmed
	}
	return s.defaultCurrency
}

func (s *checkoutService) orderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%d%03d", now.UnixMilli(), s.orderNumberRand())
}

func (s *checkoutService) publishEvent(ctx context.Context, event OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"orderId": event.OrderID,
			"type":    event.Type,
			"error":   err.Error(),
		})
	}
}
