package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	pfirestore "github.com/Roshan-Lodhi/Shoplane/internal/platform/firestore"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

const (
	ordersCollection = "orders"
	// paymentIndexCollection maps gateway payment ids to order ids so
	// repeated finalize calls for the same payment are caught inside the
	// transaction.
	paymentIndexCollection = "orderPayments"
)

type orderDocument struct {
	OrderNumber     string                  `firestore:"orderNumber"`
	UserID          string                  `firestore:"userId"`
	TotalAmount     int64                   `firestore:"totalAmount"`
	Currency        string                  `firestore:"currency"`
	Status          string                  `firestore:"status"`
	Items           []orderItemDocument     `firestore:"items"`
	ShippingAddress shippingAddressDocument `firestore:"shippingAddress"`
	PaymentID       string                  `firestore:"paymentId"`
	GatewayOrderID  string                  `firestore:"gatewayOrderId"`
	DiscountCode    string                  `firestore:"discountCode,omitempty"`
	DiscountAmount  int64                   `firestore:"discountAmount"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	UnitPrice int64  `firestore:"unitPrice"`
	Quantity  int    `firestore:"quantity"`
	ImageURL  string `firestore:"imageUrl,omitempty"`
}

type shippingAddressDocument struct {
	Name    string `firestore:"name"`
	Email   string `firestore:"email"`
	Phone   string `firestore:"phone"`
	Address string `firestore:"address"`
}

type paymentIndexDocument struct {
	OrderID   string    `firestore:"orderId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
type OrderRepository struct {
	base      *pfirestore.BaseRepository[orderDocument]
	index     *pfirestore.BaseRepository[paymentIndexDocument]
	discounts *pfirestore.BaseRepository[discountDocument]
	provider  *pfirestore.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:      pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		index:     pfirestore.NewBaseRepository[paymentIndexDocument](provider, paymentIndexCollection, nil, nil),
		discounts: pfirestore.NewBaseRepository[discountDocument](provider, discountsCollection, nil, nil),
		provider:  provider,
	}, nil
}

// Finalize writes the order, the payment index entry, and the discount usage
// increment inside one transaction. A payment id that has already been
// finalized aborts with ErrDuplicatePayment before any write happens.
func (r *OrderRepository) Finalize(ctx context.Context, order domain.Order, discount *repositories.OrderFinalizeDiscount) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	paymentID := strings.TrimSpace(order.PaymentID)
	if paymentID == "" {
		return domain.Order{}, errors.New("order repository: payment id is required")
	}
	if discount != nil && strings.TrimSpace(discount.DiscountID) == "" {
		return domain.Order{}, errors.New("order repository: discount id is required when a discount is consumed")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		indexRef, err := r.index.DocumentRef(ctx, paymentID)
		if err != nil {
			return err
		}

		// Firestore requires all reads before the first write.
		switch _, err := tx.Get(indexRef); status.Code(err) {
		case codes.NotFound:
			// first finalize for this payment
		case codes.OK:
			return repositories.ErrDuplicatePayment
		default:
			return err
		}

		var discountRef *firestore.DocumentRef
		var discountDoc discountDocument
		if discount != nil {
			discountRef, err = r.discounts.DocumentRef(ctx, discount.DiscountID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(discountRef)
			if err != nil {
				return err
			}
			if err := snap.DataTo(&discountDoc); err != nil {
				return fmt.Errorf("firestore discountCodes decode %s: %w", discount.DiscountID, err)
			}
			if discountDoc.MaxUses > 0 && discountDoc.CurrentUses >= discountDoc.MaxUses {
				return repositories.ErrDiscountExhausted
			}
		}

		now := order.CreatedAt.UTC()
		if now.IsZero() {
			now = time.Now().UTC()
		}

		if err := tx.Create(orderRef, encodeOrderDocument(order, now)); err != nil {
			return err
		}
		if err := tx.Create(indexRef, paymentIndexDocument{OrderID: orderID, CreatedAt: now}); err != nil {
			return err
		}
		if discountRef != nil {
			if err := tx.Update(discountRef, []firestore.Update{
				{Path: "currentUses", Value: firestore.Increment(1)},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicatePayment) || errors.Is(err, repositories.ErrDiscountExhausted) {
			return domain.Order{}, err
		}
		return domain.Order{}, pfirestore.WrapError("orders.finalize", err)
	}

	stored := order
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	return stored, nil
}

// FindByID fetches an order by its document id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data), nil
}

// FindByPaymentID resolves the payment index and loads the owning order.
func (r *OrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (domain.Order, error) {
	if r == nil || r.index == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	entry, err := r.index.Get(ctx, paymentID)
	if err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, entry.Data.OrderID)
}

// FindByNumber looks an order up by its human-facing order number.
func (r *OrderRepository) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	number := strings.TrimSpace(orderNumber)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderNumber", "==", number).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.findbynumber",
			status.Errorf(codes.NotFound, "order %s not found", number))
	}
	return decodeOrderDocument(docs[0].ID, docs[0].Data), nil
}

// List returns orders newest first, optionally scoped to a user, status set,
// and creation date range.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statuses := normaliseOrderStatuses(filter.Status)
	userID := strings.TrimSpace(filter.UserID)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statuses) > 10 {
				statuses = statuses[:10]
			}
			q = q.Where("status", "in", statuses)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// UpdateStatus moves the order to the given status. Transition legality is
// the service's concern; the repository only persists the change.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, orderStatus domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.base.Update(ctx, orderID, []firestore.Update{
		{Path: "status", Value: string(orderStatus)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}, firestore.Exists)
	if err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

func encodeOrderDocument(order domain.Order, now time.Time) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}
	return orderDocument{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Currency:    strings.ToUpper(strings.TrimSpace(order.Currency)),
		Status:      string(order.Status),
		Items:       items,
		ShippingAddress: shippingAddressDocument{
			Name:    order.ShippingAddress.Name,
			Email:   order.ShippingAddress.Email,
			Phone:   order.ShippingAddress.Phone,
			Address: order.ShippingAddress.Address,
		},
		PaymentID:      order.PaymentID,
		GatewayOrderID: order.GatewayOrderID,
		DiscountCode:   order.DiscountCode,
		DiscountAmount: order.DiscountAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func decodeOrderDocument(id string, doc orderDocument) domain.Order {
	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}
	return domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		UserID:      doc.UserID,
		TotalAmount: doc.TotalAmount,
		Currency:    doc.Currency,
		Status:      domain.OrderStatus(doc.Status),
		Items:       items,
		ShippingAddress: domain.ShippingAddress{
			Name:    doc.ShippingAddress.Name,
			Email:   doc.ShippingAddress.Email,
			Phone:   doc.ShippingAddress.Phone,
			Address: doc.ShippingAddress.Address,
		},
		PaymentID:      doc.PaymentID,
		GatewayOrderID: doc.GatewayOrderID,
		DiscountCode:   doc.DiscountCode,
		DiscountAmount: doc.DiscountAmount,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func normaliseOrderStatuses(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
