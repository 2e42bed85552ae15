package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
)

func orderFixture(t *testing.T, now time.Time, seed ...domain.Order) (OrderService, *fakeOrderRepository, *fakeEventPublisher) {
	t.Helper()
	orders := newFakeOrderRepository()
	for _, order := range seed {
		orders.byID[order.ID] = order
	}
	events := &fakeEventPublisher{}
	svc, err := NewOrderService(OrderServiceDeps{
		Orders: orders,
		Events: events,
		Clock:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc, orders, events
}

func TestGetOrderEnforcesOwnership(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _ := orderFixture(t, now, domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusProcessing})

	if _, err := svc.GetOrder(context.Background(), "user-1", "ord-1"); err != nil {
		t.Fatalf("GetOrder owner: %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), "user-2", "ord-1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign user, got %v", err)
	}
	// Admin reads skip the ownership check.
	if _, err := svc.GetOrder(context.Background(), "", "ord-1"); err != nil {
		t.Fatalf("GetOrder admin: %v", err)
	}
}

func TestGetOrderByNumberEnforcesOwnership(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _ := orderFixture(t, now, domain.Order{
		ID:          "ord-1",
		OrderNumber: "ORD1709294400000042",
		UserID:      "user-1",
		Status:      domain.OrderStatusProcessing,
	})

	order, err := svc.GetOrderByNumber(context.Background(), "user-1", "ORD1709294400000042")
	if err != nil {
		t.Fatalf("GetOrderByNumber owner: %v", err)
	}
	if order.ID != "ord-1" {
		t.Fatalf("expected ord-1, got %+v", order)
	}
	if _, err := svc.GetOrderByNumber(context.Background(), "user-2", "ORD1709294400000042"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign user, got %v", err)
	}
	if _, err := svc.GetOrderByNumber(context.Background(), "user-1", "ORD0000000000000000"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for unknown number, got %v", err)
	}
	if _, err := svc.GetOrderByNumber(context.Background(), "user-1", " "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestTransitionStatusFollowsLifecycle(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		current domain.OrderStatus
		target  domain.OrderStatus
		wantErr error
	}{
		{name: "pending to processing", current: domain.OrderStatusPending, target: domain.OrderStatusProcessing},
		{name: "processing to shipped", current: domain.OrderStatusProcessing, target: domain.OrderStatusShipped},
		{name: "shipped to delivered", current: domain.OrderStatusShipped, target: domain.OrderStatusDelivered},
		{name: "cancel from pending", current: domain.OrderStatusPending, target: domain.OrderStatusCancelled},
		{name: "cancel from processing", current: domain.OrderStatusProcessing, target: domain.OrderStatusCancelled},
		{name: "cancel from shipped", current: domain.OrderStatusShipped, target: domain.OrderStatusCancelled},
		{name: "cancel after delivery not allowed", current: domain.OrderStatusDelivered, target: domain.OrderStatusCancelled, wantErr: ErrOrderInvalidTransition},
		{name: "skip not allowed", current: domain.OrderStatusPending, target: domain.OrderStatusShipped, wantErr: ErrOrderInvalidTransition},
		{name: "backwards not allowed", current: domain.OrderStatusShipped, target: domain.OrderStatusProcessing, wantErr: ErrOrderInvalidTransition},
		{name: "terminal frozen", current: domain.OrderStatusDelivered, target: domain.OrderStatusShipped, wantErr: ErrOrderInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, events := orderFixture(t, now, domain.Order{ID: "ord-1", UserID: "user-1", Status: tc.current})

			updated, err := svc.TransitionStatus(context.Background(), OrderStatusCommand{OrderID: "ord-1", Status: tc.target, ActorID: "admin-1"})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TransitionStatus: %v", err)
			}
			if updated.Status != tc.target {
				t.Fatalf("expected status %s, got %s", tc.target, updated.Status)
			}
			if len(events.events) != 1 || events.events[0].Type != "order.status_changed" {
				t.Fatalf("expected status event, got %+v", events.events)
			}
		})
	}
}

func TestTransitionStatusIdempotentOnSameStatus(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc, _, events := orderFixture(t, now, domain.Order{ID: "ord-1", Status: domain.OrderStatusShipped})

	order, err := svc.TransitionStatus(context.Background(), OrderStatusCommand{OrderID: "ord-1", Status: domain.OrderStatusShipped})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(events.events) != 0 {
		t.Fatalf("no event expected for no-op transition")
	}
}

func TestCancelOrderFromNonTerminal(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc, orders, events := orderFixture(t, now, domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusProcessing})

	order, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-1", Reason: "changed mind"})
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}
	if orders.byID["ord-1"].Status != domain.OrderStatusCancelled {
		t.Fatalf("expected persisted cancellation")
	}
	if len(events.events) != 1 || events.events[0].Type != "order.cancelled" {
		t.Fatalf("expected cancellation event, got %+v", events.events)
	}
}

func TestCancelOrderRejectsTerminal(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _ := orderFixture(t, now, domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusDelivered})

	_, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-1"})
	if !errors.Is(err, ErrOrderInvalidTransition) {
		t.Fatalf("expected ErrOrderInvalidTransition, got %v", err)
	}
}

func TestListOrdersFiltersByUser(t *testing.T) {
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _ := orderFixture(t, now,
		domain.Order{ID: "ord-1", UserID: "user-1"},
		domain.Order{ID: "ord-2", UserID: "user-2"},
	)

	page, err := svc.ListOrders(context.Background(), OrderHistoryFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "ord-1" {
		t.Fatalf("unexpected page: %+v", page.Items)
	}
}
