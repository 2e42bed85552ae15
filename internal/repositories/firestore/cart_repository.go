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

const cartsCollection = "carts"

type cartDocument struct {
	Currency  string             `firestore:"currency"`
	Items     []cartItemDocument `firestore:"items"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	UnitPrice int64  `firestore:"unitPrice"`
	Quantity  int    `firestore:"quantity"`
	ImageURL  string `firestore:"imageUrl,omitempty"`
}

// CartRepository persists carts within Firestore, one document per user.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection, nil, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// Get loads the cart for the user. Missing carts surface as a not-found
// repository error; the service layer decides whether that means empty.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCartDocument(doc.ID, doc.Data), nil
}

// Save writes the full cart document keyed by the user id. The incoming
// cart's UpdatedAt carries the revision the caller loaded; the write aborts
// with a conflict when the stored revision no longer matches, or when a cart
// the caller believed new already exists.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID := strings.TrimSpace(cart.UserID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	expected := cart.UpdatedAt.UTC()
	now := time.Now().UTC()
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	items := make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			continue
		}
		items = append(items, cartItemDocument{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	doc := cartDocument{
		Currency:  strings.ToUpper(strings.TrimSpace(cart.Currency)),
		Items:     items,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, userID)
		if err != nil {
			return err
		}
		switch snap, err := tx.Get(ref); status.Code(err) {
		case codes.NotFound:
			if !expected.IsZero() {
				return status.Errorf(codes.FailedPrecondition, "cart %s was removed concurrently", userID)
			}
		case codes.OK:
			var current cartDocument
			if err := snap.DataTo(&current); err != nil {
				return fmt.Errorf("firestore carts decode %s: %w", userID, err)
			}
			if expected.IsZero() || !current.UpdatedAt.Equal(expected) {
				return status.Errorf(codes.FailedPrecondition, "cart %s was modified concurrently", userID)
			}
			doc.CreatedAt = current.CreatedAt
		default:
			return err
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.save", err)
	}
	return decodeCartDocument(userID, doc), nil
}

// Delete removes the cart document for the user.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(userID))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func decodeCartDocument(userID string, doc cartDocument) domain.Cart {
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
	return domain.Cart{
		ID:        userID,
		UserID:    userID,
		Currency:  doc.Currency,
		Items:     items,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
