package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/Roshan-Lodhi/Shoplane/internal/domain"
	"github.com/Roshan-Lodhi/Shoplane/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates missing or malformed order input.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order does not exist or belongs to another user.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidTransition indicates the requested status change is not allowed
	// from the order's current status.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderDependenciesMissing indicates the service was constructed without required collaborators.
	ErrOrderDependenciesMissing = errors.New("order: missing dependencies")
)

// orderTransitions describes the allowed fulfilment progression. Cancellation
// is handled separately: any non-terminal status may cancel.
var orderTransitions = map[domain.OrderStatus]domain.OrderStatus{
	domain.OrderStatusPending:    domain.OrderStatusProcessing,
	domain.OrderStatusProcessing: domain.OrderStatusShipped,
	domain.OrderStatusShipped:    domain.OrderStatusDelivered,
}

// OrderLogger defines the logging contract for order operations.
type OrderLogger func(ctx context.Context, event string, fields map[string]any)

// OrderServiceDeps bundles collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Events OrderEventPublisher
	Clock  func() time.Time
	Logger OrderLogger
}

type orderService struct {
	orders repositories.OrderRepository
	events OrderEventPublisher
	clock  func() time.Time
	logger OrderLogger
}

var _ OrderService = (*orderService)(nil)

// NewOrderService assembles the order read and fulfilment service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, ErrOrderDependenciesMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders: deps.Orders,
		events: deps.Events,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID string, orderID string) (Order, error) {
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	// An empty userID is an admin read; otherwise ownership is enforced.
	if userID != "" && order.UserID != userID {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetOrderByNumber(ctx context.Context, userID string, orderNumber string) (Order, error) {
	userID = strings.TrimSpace(userID)
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return Order{}, ErrOrderInvalidInput
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	if userID != "" && order.UserID != userID {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderHistoryFilter) (domain.CursorPage[Order], error) {
	return s.orders.List(ctx, repositories.OrderListFilter{
		UserID: strings.TrimSpace(filter.UserID),
		Status: filter.Status,
		DateRange: domain.RangeQuery[time.Time]{
			From: filter.From,
			To:   filter.To,
		},
		Pagination: filter.Pagination,
	})
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" || cmd.Status == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.GetOrder(ctx, "", orderID)
	if err != nil {
		return Order{}, err
	}
	if cmd.Status == order.Status {
		return order, nil
	}
	if cmd.Status == domain.OrderStatusCancelled {
		if order.Status.Terminal() {
			return Order{}, ErrOrderInvalidTransition
		}
	} else if next, ok := orderTransitions[order.Status]; !ok || next != cmd.Status {
		return Order{}, ErrOrderInvalidTransition
	}

	now := s.clock()
	updated, err := s.orders.UpdateStatus(ctx, orderID, cmd.Status, now)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}

	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId": updated.ID,
		"from":    string(order.Status),
		"to":      string(updated.Status),
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	s.publishEvent(ctx, updated, "order.status_changed", now)
	return updated, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	userID := strings.TrimSpace(cmd.UserID)
	if orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status.Terminal() {
		return Order{}, ErrOrderInvalidTransition
	}

	now := s.clock()
	updated, err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, now)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}

	s.logger(ctx, "order.cancelled", map[string]any{
		"orderId": updated.ID,
		"userId":  userID,
		"reason":  strings.TrimSpace(cmd.Reason),
	})
	s.publishEvent(ctx, updated, "order.cancelled", now)
	return updated, nil
}

func (s *orderService) publishEvent(ctx context.Context, order Order, eventType string, now time.Time) {
	if s.events == nil {
		return
	}
	event := OrderEventMessage{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		PaymentID:   order.PaymentID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		OccurredAt:  now,
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"type":    eventType,
			"error":   err.Error(),
		})
	}
}
