package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage wraps a page of results together with the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Product describes a catalog entry shown on the storefront.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	// Price is stored in major currency units (whole rupees for INR). The
	// payment gateway boundary owns the one-time conversion to minor units.
	Price     int64
	Currency  string
	ImageURL  string
	InStock   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a single line within a user's cart. Quantity is always >= 1;
// dropping a quantity to zero removes the line entirely.
type CartItem struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	ImageURL  string
}

// Cart aggregates the pending purchase for a single user. The document is
// keyed by user ID; there is at most one open cart per user.
type Cart struct {
	ID        string
	UserID    string
	Currency  string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns the cart total in major units before any discount.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		if item.Quantity <= 0 || item.UnitPrice <= 0 {
			continue
		}
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// DiscountType enumerates the supported discount computation modes.
type DiscountType string

const (
	// DiscountTypePercentage deducts value% of the cart total.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed deducts a fixed major-unit amount.
	DiscountTypeFixed DiscountType = "fixed"
)

// DiscountCode is a redeemable code managed through the admin back-office.
// Code is stored upper-cased; lookups normalise before matching.
type DiscountCode struct {
	ID     string
	Code   string
	Type   DiscountType
	Value  int64
	Active bool
	// ValidFrom/ValidUntil bound the redemption window. A zero ValidUntil
	// means the code never expires.
	ValidFrom  time.Time
	ValidUntil time.Time
	// MaxUses of zero means unlimited. CurrentUses never exceeds MaxUses;
	// the storage layer enforces the cap at increment time.
	MaxUses           int64
	CurrentUses       int64
	MinPurchaseAmount int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AppliedDiscount records the outcome of evaluating a code against a cart.
type AppliedDiscount struct {
	Code   string
	Type   DiscountType
	Amount int64
}

// OrderStatus tracks fulfilment progress for a persisted order.
type OrderStatus string

const (
	// OrderStatusPending marks an order awaiting fulfilment pickup.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing marks a paid order being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped marks an order handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered marks an order received by the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled marks an order cancelled before delivery.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ShippingAddress is the destination captured at checkout. Stored verbatim
// on the order; never normalised after creation.
type ShippingAddress struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Order is the persisted outcome of a verified payment. Items and
// TotalAmount are immutable after creation; only Status and UpdatedAt move.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	// TotalAmount is the charged total in major units after discount.
	TotalAmount     int64
	Currency        string
	Status          OrderStatus
	Items           []CartItem
	ShippingAddress ShippingAddress
	PaymentID       string
	GatewayOrderID  string
	DiscountCode    string
	DiscountAmount  int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
