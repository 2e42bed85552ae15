package services

import (
	"context"
	"time"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Product            = domain.Product
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	DiscountCode       = domain.DiscountCode
	AppliedDiscount    = domain.AppliedDiscount
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	ShippingAddress    = domain.ShippingAddress
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService serves the read-only storefront catalog.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter CatalogListFilter) (domain.CursorPage[Product], error)
}

// CartService manages the per-user cart aggregate. Quantities dropping to
// zero remove the line; an empty cart is a valid state, not an error.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, userID string, productID string) (Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// DiscountService evaluates discount codes against cart totals and owns the
// admin-facing code lifecycle.
type DiscountService interface {
	// Evaluate applies the full eligibility chain and returns the discount
	// amount for the given pre-discount total. It never mutates usage
	// counters; consumption happens when the order is finalized.
	Evaluate(ctx context.Context, code string, cartTotal int64) (AppliedDiscount, error)
	CreateCode(ctx context.Context, cmd UpsertDiscountCommand) (DiscountCode, error)
	UpdateCode(ctx context.Context, cmd UpsertDiscountCommand) (DiscountCode, error)
	DeleteCode(ctx context.Context, discountID string) error
	GetCode(ctx context.Context, discountID string) (DiscountCode, error)
	ListCodes(ctx context.Context, filter DiscountListFilter) (domain.CursorPage[DiscountCode], error)
}

// CheckoutService is the payment boundary: it exposes the publishable
// checkout key, opens gateway orders from server-side recomputed totals,
// verifies hosted-checkout callbacks, and turns verified payments into
// persisted orders.
type CheckoutService interface {
	PaymentKey(ctx context.Context, currency string) (string, error)
	CreatePaymentOrder(ctx context.Context, cmd CreatePaymentOrderCommand) (PaymentOrder, error)
	VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (PaymentVerification, error)
	FinalizeOrder(ctx context.Context, cmd FinalizeOrderCommand) (Order, error)
	// ReconcileGatewayEvent matches an asynchronous gateway notification
	// against the order ledger. Notifications for payments the client flow
	// already recorded are acknowledged; unmatched ones are reported back so
	// the caller can decide whether to retry delivery.
	ReconcileGatewayEvent(ctx context.Context, cmd GatewayEventCommand) (GatewayEventResult, error)
}

// OrderService encapsulates order reads and fulfilment status transitions.
type OrderService interface {
	GetOrder(ctx context.Context, userID string, orderID string) (Order, error)
	GetOrderByNumber(ctx context.Context, userID string, orderNumber string) (Order, error)
	ListOrders(ctx context.Context, filter OrderHistoryFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// SystemService exposes operational health and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher broadcasts order lifecycle events to interested
// consumers (fulfilment, notifications). Publishing failures are logged,
// never surfaced to the customer.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEventMessage) (string, error)
}

// OrderEventMessage is the wire payload for order lifecycle events.
type OrderEventMessage struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	PaymentID   string    `json:"paymentId,omitempty"`
	TotalAmount int64     `json:"totalAmount"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Command and filter DTOs ----------------------------------------------------

type CatalogListFilter struct {
	Category   string
	Search     string
	Pagination Pagination
}

type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

type UpdateCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

type UpsertDiscountCommand struct {
	DiscountID        string
	Code              string
	Type              domain.DiscountType
	Value             int64
	Active            bool
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           int64
	MinPurchaseAmount int64
}

type DiscountListFilter struct {
	ActiveOnly bool
	Pagination Pagination
}

// CreatePaymentOrderCommand opens a gateway payment order for the user's
// cart. ClientAmount is what the storefront believes it owes; the service
// recomputes the chargeable amount and rejects a mismatch.
type CreatePaymentOrderCommand struct {
	UserID       string
	Currency     string
	DiscountCode string
	ClientAmount int64
}

// PaymentOrder is returned to the browser to boot the hosted checkout.
type PaymentOrder struct {
	GatewayOrderID string
	Provider       string
	// Amount is in the gateway's minor units, exactly as it reported.
	Amount       int64
	Currency     string
	Key          string
	Receipt      string
	Subtotal     int64
	Discount     AppliedDiscount
	PayableTotal int64
}

// VerifyPaymentCommand carries the hosted-checkout callback payload. Currency
// selects the provider that opened the gateway order; verification must run
// against that provider, not the default route.
type VerifyPaymentCommand struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
	Currency  string
}

// PaymentVerification reports the trust decision for a callback payload.
type PaymentVerification struct {
	Verified  bool
	OrderID   string
	PaymentID string
}

// FinalizeOrderCommand records a verified payment as a persisted order.
type FinalizeOrderCommand struct {
	UserID          string
	OrderID         string
	PaymentID       string
	Signature       string
	Currency        string
	DiscountCode    string
	ShippingAddress ShippingAddress
}

// GatewayEventCommand is a normalised gateway webhook notification.
type GatewayEventCommand struct {
	EventType string
	OrderID   string
	PaymentID string
	// Amount is in the gateway's minor units, as reported in the event.
	Amount   int64
	Currency string
}

// GatewayEventResult reports how a gateway notification was reconciled.
type GatewayEventResult struct {
	Known   bool
	OrderID string
	Status  OrderStatus
}

type OrderHistoryFilter struct {
	UserID     string
	Status     []string
	From       *time.Time
	To         *time.Time
	Pagination Pagination
}

type OrderStatusCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
}

type CancelOrderCommand struct {
	OrderID string
	UserID  string
	Reason  string
}
