package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

type fakeProductRepository struct {
	products map[string]domain.Product
	listErr  error
}

func newFakeProductRepository(products ...domain.Product) *fakeProductRepository {
	r := &fakeProductRepository{products: map[string]domain.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, fakeRepoError{notFound: true}
	}
	return product, nil
}

func (r *fakeProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	found := map[string]domain.Product{}
	for _, id := range productIDs {
		if product, ok := r.products[id]; ok {
			found[id] = product
		}
	}
	return found, nil
}

func (r *fakeProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r.listErr != nil {
		return domain.CursorPage[domain.Product]{}, r.listErr
	}
	page := domain.CursorPage[domain.Product]{}
	for _, p := range r.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		page.Items = append(page.Items, p)
	}
	return page, nil
}

func cartFixture(t *testing.T, now time.Time, products ...domain.Product) (CartService, *fakeCartRepository) {
	t.Helper()
	carts := newFakeCartRepository()
	svc, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: newFakeProductRepository(products...),
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc, carts
}

func TestGetCartReturnsEmptyWhenMissing(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := cartFixture(t, now)

	cart, err := svc.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.UserID != "user-1" || len(cart.Items) != 0 {
		t.Fatalf("expected empty cart for user-1, got %+v", cart)
	}
	if cart.Currency != "INR" {
		t.Fatalf("expected default currency INR, got %s", cart.Currency)
	}
}

func TestAddItemSnapshotsProductPrice(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, carts := cartFixture(t, now, domain.Product{
		ID:       "prod-1",
		Name:     "Sneakers",
		Price:    1999,
		ImageURL: "https://cdn.example.com/prod-1.jpg",
	})

	cart, err := svc.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	item := cart.Items[0]
	if item.UnitPrice != 1999 || item.Quantity != 2 || item.Name != "Sneakers" {
		t.Fatalf("unexpected line: %+v", item)
	}
	if cart.Subtotal() != 3998 {
		t.Fatalf("expected subtotal 3998, got %d", cart.Subtotal())
	}
	if _, ok := carts.carts["user-1"]; !ok {
		t.Fatalf("expected cart persisted")
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := cartFixture(t, now, domain.Product{ID: "prod-1", Name: "Sneakers", Price: 1999})

	if _, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	cart, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %+v", cart.Items)
	}
}

func TestAddItemReportsConcurrentModification(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, carts := cartFixture(t, now, domain.Product{ID: "prod-1", Name: "Sneakers", Price: 1999})
	carts.saveErr = fakeRepoError{conflict: true}

	_, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 1})
	if !errors.Is(err, ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict, got %v", err)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := cartFixture(t, now)

	_, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "user-1", ProductID: "ghost", Quantity: 1})
	if !errors.Is(err, ErrCartProductNotFound) {
		t.Fatalf("expected ErrCartProductNotFound, got %v", err)
	}
}

func TestUpdateItemQuantityZeroRemovesLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := cartFixture(t, now, domain.Product{ID: "prod-1", Name: "Sneakers", Price: 1999})

	if _, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	cart, err := svc.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 0})
	if err != nil {
		t.Fatalf("UpdateItemQuantity: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected line removed, got %+v", cart.Items)
	}
}

func TestUpdateItemQuantityMissingLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := cartFixture(t, now)

	_, err := svc.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 1})
	if !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestClearCartIgnoresMissingCart(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	carts := newFakeCartRepository()
	carts.delErr = fakeRepoError{notFound: true}
	svc, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: newFakeProductRepository(),
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	if err := svc.ClearCart(context.Background(), "user-1"); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
}

func TestCartServiceValidatesInput(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := cartFixture(t, now)

	if _, err := svc.GetCart(context.Background(), " "); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 0}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput for zero quantity, got %v", err)
	}
	if _, err := svc.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: -1}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput for negative quantity, got %v", err)
	}
}
