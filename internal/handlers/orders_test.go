package handlers

import (
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

type stubOrderService struct {
	getFunc         func(ctx context.Context, userID, orderID string) (services.Order, error)
	getByNumberFunc func(ctx context.Context, userID, orderNumber string) (services.Order, error)
	listFunc        func(ctx context.Context, filter services.OrderHistoryFilter) (domain.CursorPage[services.Order], error)
	transitionFunc  func(ctx context.Context, cmd services.OrderStatusCommand) (services.Order, error)
	cancelFunc      func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error)
}

func (s *stubOrderService) GetOrder(ctx context.Context, userID, orderID string) (services.Order, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID, orderID)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) GetOrderByNumber(ctx context.Context, userID, orderNumber string) (services.Order, error) {
	if s.getByNumberFunc != nil {
		return s.getByNumberFunc(ctx, userID, orderNumber)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderHistoryFilter) (domain.CursorPage[services.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusCommand) (services.Order, error) {
	if s.transitionFunc != nil {
		return s.transitionFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFunc != nil {
		return s.cancelFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

var _ services.OrderService = (*stubOrderService)(nil)

func TestOrderHandlersListOrders(t *testing.T) {
	router := chi.NewRouter()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	handler := NewOrderHandlers(nil, &stubOrderService{
		listFunc: func(ctx context.Context, filter services.OrderHistoryFilter) (domain.CursorPage[services.Order], error) {
			if filter.UserID != "user-1" {
				t.Fatalf("expected filter scoped to user-1, got %q", filter.UserID)
			}
			return domain.CursorPage[services.Order]{
				Items: []services.Order{
					{ID: "ord-1", OrderNumber: "ORD1", UserID: "user-1", TotalAmount: 900, Status: domain.OrderStatusProcessing, CreatedAt: created},
				},
				NextPageToken: "next",
			}, nil
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/?pageSize=10", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].ID != "ord-1" {
		t.Fatalf("unexpected orders %+v", resp.Orders)
	}
	if resp.NextPageToken != "next" {
		t.Fatalf("expected next page token, got %q", resp.NextPageToken)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(nil, &stubOrderService{
		getFunc: func(context.Context, string, string) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/ord-404", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderByNumber(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(nil, &stubOrderService{
		getByNumberFunc: func(ctx context.Context, userID, orderNumber string) (services.Order, error) {
			if userID != "user-1" {
				t.Fatalf("expected lookup scoped to user-1, got %q", userID)
			}
			if orderNumber != "ORD1709294400000042" {
				t.Fatalf("unexpected order number %q", orderNumber)
			}
			return services.Order{ID: "ord-1", OrderNumber: orderNumber, UserID: userID}, nil
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodGet, "/number/ORD1709294400000042", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.ID != "ord-1" || resp.Order.OrderNumber != "ORD1709294400000042" {
		t.Fatalf("unexpected response %+v", resp.Order)
	}
}

func TestOrderHandlersCancelOrder(t *testing.T) {
	router := chi.NewRouter()
	var captured services.CancelOrderCommand
	handler := NewOrderHandlers(nil, &stubOrderService{
		cancelFunc: func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, UserID: cmd.UserID, Status: domain.OrderStatusCancelled}, nil
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodPost, "/ord-1/cancel?reason=changed+mind", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.OrderID != "ord-1" || captured.UserID != "user-1" || captured.Reason != "changed mind" {
		t.Fatalf("unexpected command %+v", captured)
	}
	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.Status != string(domain.OrderStatusCancelled) {
		t.Fatalf("expected cancelled status, got %s", resp.Order.Status)
	}
}

func TestOrderHandlersCancelTerminalOrder(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(nil, &stubOrderService{
		cancelFunc: func(context.Context, services.CancelOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidTransition
		},
	})
	handler.Routes(router)

	req := authenticated(httptest.NewRequest(http.MethodPost, "/ord-1/cancel", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}
