package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/internal/event"
	"github.com/sneakrush/api/internal/repository"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

// OrderService implements the business logic for checkout and order lifecycle.
type OrderService struct {
	orders     repository.OrderRepository
	promotions repository.PromotionRepository
	cache      repository.CartCountCache
	producer   *event.Producer
	logger     *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	promotions repository.PromotionRepository,
	cache repository.CartCountCache,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:     orders,
		promotions: promotions,
		cache:      cache,
		producer:   producer,
		logger:     logger,
	}
}

// Checkout converts the user's cart into a paid order. An unknown or inactive
// promotion code degrades to zero discount rather than failing the checkout.
func (s *OrderService) Checkout(ctx context.Context, userID, promoCode string) (*domain.Order, error) {
	var promo *domain.Promotion
	if promoCode != "" {
		var err error
		promo, err = s.promotions.FindActiveByCode(ctx, promoCode)
		if err != nil {
			return nil, fmt.Errorf("resolve promotion: %w", err)
		}
		if promo == nil {
			s.logger.InfoContext(ctx, "promotion code not applicable, proceeding without discount",
				slog.String("user_id", userID),
				slog.String("code", promoCode),
			)
		}
	}

	order, err := s.orders.CreateFromCart(ctx, userID, promo)
	if err != nil {
		return nil, err
	}

	s.invalidateCount(ctx, userID)

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int64("total_cents", order.TotalCents),
		slog.Int64("discount_cents", order.DiscountCents),
	)

	return order, nil
}

// GetOrder retrieves an order, enforcing owner-or-admin access.
func (s *OrderService) GetOrder(ctx context.Context, id, requesterID string, isAdmin bool) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	if !isAdmin && order.UserID != requesterID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	return order, nil
}

// ListOrders returns orders matching the filter. Admin gating happens at the
// router.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ListUserOrders returns the requesting user's own orders.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	return s.ListOrders(ctx, repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	})
}

// UpdateStatus sets the order status after membership validation against the
// status enum. Any valid status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) error {
	if !domain.IsValidStatus(status) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get order by id: %w", err)
	}

	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, id, order.Status, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", order.Status),
		slog.String("new_status", status),
	)
	return nil
}

// Cancel cancels the order and restores stock, enforcing owner-or-admin
// access. Canceling an already terminal order is rejected without touching
// stock.
func (s *OrderService) Cancel(ctx context.Context, id, requesterID string, isAdmin bool) error {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get order by id: %w", err)
	}
	if !isAdmin && order.UserID != requesterID {
		return apperrors.Forbidden("order belongs to another user")
	}

	prevStatus, err := s.orders.CancelRestock(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if domain.IsTerminalStatus(prevStatus) {
		return apperrors.AlreadyTerminal(prevStatus)
	}

	if err := s.producer.PublishOrderCanceled(ctx, id, "canceled by "+requesterRole(isAdmin)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.canceled event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order canceled",
		slog.String("order_id", id),
		slog.String("previous_status", prevStatus),
	)
	return nil
}

func requesterRole(isAdmin bool) string {
	if isAdmin {
		return "admin"
	}
	return "customer"
}

// invalidateCount drops the cached badge counter after checkout empties the
// cart.
func (s *OrderService) invalidateCount(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "cart count cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
