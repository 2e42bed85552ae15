package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/services"
)

func TestAdminOrderHandlersUpdateStatus(t *testing.T) {
	router := chi.NewRouter()
	var captured services.OrderStatusCommand
	handler := NewAdminOrderHandlers(nil, &stubOrderService{
		transitionFunc: func(ctx context.Context, cmd services.OrderStatusCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: cmd.Status}, nil
		},
	})
	handler.Routes(router)

	payload := `{"status":"shipped"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/orders/order-1/status", bytes.NewBufferString(payload)), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "order-1" || captured.Status != domain.OrderStatusShipped {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.ActorID != "admin-1" {
		t.Fatalf("expected actor admin-1, got %q", captured.ActorID)
	}
	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.Status != "shipped" {
		t.Fatalf("unexpected order payload %+v", resp.Order)
	}
}

func TestAdminOrderHandlersUpdateStatusInvalidTransition(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminOrderHandlers(nil, &stubOrderService{
		transitionFunc: func(context.Context, services.OrderStatusCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidTransition
		},
	})
	handler.Routes(router)

	payload := `{"status":"delivered"}`
	req := authenticated(httptest.NewRequest(http.MethodPost, "/orders/order-1/status", bytes.NewBufferString(payload)), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminOrderHandlersListAcrossUsers(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminOrderHandlers(nil, &stubOrderService{
		listFunc: func(ctx context.Context, filter services.OrderHistoryFilter) (domain.CursorPage[services.Order], error) {
			if filter.UserID != "" {
				t.Fatalf("expected unscoped listing, got user %q", filter.UserID)
			}
			if len(filter.Status) != 1 || filter.Status[0] != "processing" {
				t.Fatalf("unexpected status filter %v", filter.Status)
			}
			return domain.CursorPage[services.Order]{
				Items: []services.Order{
					{ID: "order-1", UserID: "user-1", Status: domain.OrderStatusProcessing},
					{ID: "order-2", UserID: "user-2", Status: domain.OrderStatusProcessing},
				},
			}, nil
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/orders/?status=processing", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(resp.Orders))
	}
}

func TestAdminOrderHandlersGetNotFound(t *testing.T) {
	router := chi.NewRouter()
	handler := NewAdminOrderHandlers(nil, &stubOrderService{
		getFunc: func(context.Context, string, string) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/orders/order-404", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
