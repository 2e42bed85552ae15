package repositories

import (
	"context"
	"time"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Discounts() DiscountRepository
	Orders() OrderRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository serves the read-only storefront catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// CartRepository owns cart persistence keyed by user.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// DiscountRepository maintains discount code definitions and usage counters.
type DiscountRepository interface {
	Insert(ctx context.Context, code domain.DiscountCode) error
	Update(ctx context.Context, code domain.DiscountCode) error
	Delete(ctx context.Context, discountID string) error
	FindByID(ctx context.Context, discountID string) (domain.DiscountCode, error)
	FindByCode(ctx context.Context, code string) (domain.DiscountCode, error)
	List(ctx context.Context, filter DiscountListFilter) (domain.CursorPage[domain.DiscountCode], error)
}

// OrderFinalizeDiscount names the discount whose usage counter must move
// together with the order insert.
type OrderFinalizeDiscount struct {
	DiscountID string
	MaxUses    int64
}

// OrderRepository persists order headers. Finalize is the single write path
// that turns a verified payment into a stored order: the order insert, the
// payment-id index entry, and the discount usage increment commit or fail
// as one transaction.
type OrderRepository interface {
	Finalize(ctx context.Context, order domain.Order, discount *OrderFinalizeDiscount) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (domain.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type ProductListFilter struct {
	Category   string
	Search     string
	Pagination domain.Pagination
}

type DiscountListFilter struct {
	ActiveOnly bool
	Pagination domain.Pagination
}

type OrderListFilter struct {
	UserID     string
	Status     []string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
