package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

type stubCatalogService struct {
	getFunc  func(ctx context.Context, productID string) (services.Product, error)
	listFunc func(ctx context.Context, filter services.CatalogListFilter) (domain.CursorPage[services.Product], error)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, productID)
	}
	return services.Product{}, nil
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.CatalogListFilter) (domain.CursorPage[services.Product], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[services.Product]{}, nil
}

var _ services.CatalogService = (*stubCatalogService)(nil)

func TestCatalogHandlersListProducts(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCatalogHandlers(&stubCatalogService{
		listFunc: func(ctx context.Context, filter services.CatalogListFilter) (domain.CursorPage[services.Product], error) {
			if filter.Category != "shoes" {
				t.Fatalf("expected category filter, got %q", filter.Category)
			}
			return domain.CursorPage[services.Product]{
				Items: []services.Product{
					{ID: "prod-1", Name: "Sneakers", Price: 1999, Currency: "INR", InStock: true},
				},
			}, nil
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/products?category=shoes", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp productListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "prod-1" {
		t.Fatalf("unexpected products %+v", resp.Products)
	}
}

func TestCatalogHandlersGetProductNotFound(t *testing.T) {
	router := chi.NewRouter()
	handler := NewCatalogHandlers(&stubCatalogService{
		getFunc: func(context.Context, string) (services.Product, error) {
			return services.Product{}, services.ErrCatalogProductNotFound
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/products/ghost", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
