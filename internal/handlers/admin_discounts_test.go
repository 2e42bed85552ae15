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

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

type stubDiscountService struct {
	evaluateFunc func(ctx context.Context, code string, cartTotal int64) (services.AppliedDiscount, error)
	createFunc   func(ctx context.Context, cmd services.UpsertDiscountCommand) (services.DiscountCode, error)
	updateFunc   func(ctx context.Context, cmd services.UpsertDiscountCommand) (services.DiscountCode, error)
	deleteFunc   func(ctx context.Context, discountID string) error
	getFunc      func(ctx context.Context, discountID string) (services.DiscountCode, error)
	listFunc     func(ctx context.Context, filter services.DiscountListFilter) (domain.CursorPage[services.DiscountCode], error)
}

func (s *stubDiscountService) Evaluate(ctx context.Context, code string, cartTotal int64) (services.AppliedDiscount, error) {
	if s.evaluateFunc != nil {
		return s.evaluateFunc(ctx, code, cartTotal)
	}
	return services.AppliedDiscount{}, nil
}

func (s *stubDiscountService) CreateCode(ctx context.Context, cmd services.UpsertDiscountCommand) (services.DiscountCode, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.DiscountCode{}, nil
}

func (s *stubDiscountService) UpdateCode(ctx context.Context, cmd services.UpsertDiscountCommand) (services.DiscountCode, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return services.DiscountCode{}, nil
}

func (s *stubDiscountService) DeleteCode(ctx context.Context, discountID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, discountID)
	}
	return nil
}

func (s *stubDiscountService) GetCode(ctx context.Context, discountID string) (services.DiscountCode, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, discountID)
	}
	return services.DiscountCode{}, nil
}

func (s *stubDiscountService) ListCodes(ctx context.Context, filter services.DiscountListFilter) (domain.CursorPage[services.DiscountCode], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[services.DiscountCode]{}, nil
}

var _ services.DiscountService = (*stubDiscountService)(nil)

func TestAdminDiscountHandlersCreate(t *testing.T) {
	router := chi.NewRouter()
	var captured services.UpsertDiscountCommand
	handler := NewAdminDiscountHandlers(nil, &stubDiscountService{
		createFunc: func(ctx context.Context, cmd services.UpsertDiscountCommand) (services.DiscountCode, error) {
			captured = cmd
			return services.DiscountCode{
				ID:    "disc-1",
				Code:  "SAVE10",
				Type:  domain.DiscountTypePercentage,
				Value: cmd.Value,
			}, nil
		},
	})
	handler.Routes(router)

	payload := `{"code":"save10","type":"percentage","value":10,"active":true,"validUntil":"2024-12-31T00:00:00Z","maxUses":100,"minPurchaseAmount":500}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/discounts/", bytes.NewBufferString(payload)), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Code != "save10" || captured.Value != 10 || captured.MaxUses != 100 {
		t.Fatalf("unexpected command %+v", captured)
	}
	wantUntil := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	if !captured.ValidUntil.Equal(wantUntil) {
		t.Fatalf("expected validUntil %v, got %v", wantUntil, captured.ValidUntil)
	}
}

func TestAdminDiscountHandlersCreateDuplicate(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminDiscountHandlers(nil, &stubDiscountService{
		createFunc: func(context.Context, services.UpsertDiscountCommand) (services.DiscountCode, error) {
			return services.DiscountCode{}, services.ErrDiscountCodeExists
		},
	})
	handler.Routes(router)

	payload := `{"code":"save10","type":"percentage","value":10}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/discounts/", bytes.NewBufferString(payload)), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminDiscountHandlersCreateRejectsBadTimestamp(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminDiscountHandlers(nil, &stubDiscountService{})
	handler.Routes(router)

	payload := `{"code":"save10","type":"percentage","value":10,"validFrom":"yesterday"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/discounts/", bytes.NewBufferString(payload)), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminDiscountHandlersList(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminDiscountHandlers(nil, &stubDiscountService{
		listFunc: func(ctx context.Context, filter services.DiscountListFilter) (domain.CursorPage[services.DiscountCode], error) {
			if !filter.ActiveOnly {
				t.Fatalf("expected active-only filter")
			}
			return domain.CursorPage[services.DiscountCode]{
				Items: []services.DiscountCode{
					{ID: "disc-1", Code: "SAVE10", Type: domain.DiscountTypePercentage, Value: 10, Active: true, CurrentUses: 4},
				},
			}, nil
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/discounts/?active=true", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp discountListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Discounts) != 1 || resp.Discounts[0].CurrentUses != 4 {
		t.Fatalf("unexpected discounts %+v", resp.Discounts)
	}
}

func TestAdminDiscountHandlersDeleteNotFound(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminDiscountHandlers(nil, &stubDiscountService{
		deleteFunc: func(context.Context, string) error {
			return services.ErrDiscountNotFound
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodDelete, "/discounts/disc-404", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
