package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/internal/repository"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

// CartService implements the business logic for cart operations.
type CartService struct {
	repo   repository.CartRepository
	cache  repository.CartCountCache
	logger *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, cache repository.CartCountCache, logger *slog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Get returns the user's cart with live prices and the computed subtotal.
func (s *CartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds qty of the variant to the user's cart.
func (s *CartService) AddItem(ctx context.Context, userID, variantID string, qty int) error {
	if qty < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}

	if err := s.repo.AddItem(ctx, userID, variantID, qty); err != nil {
		return err
	}

	s.invalidateCount(ctx, userID)

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("user_id", userID),
		slog.String("variant_id", variantID),
		slog.Int("quantity", qty),
	)
	return nil
}

// SetItemQuantity replaces the line quantity; zero removes the line.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, variantID string, qty int) error {
	if qty < 0 {
		return apperrors.InvalidInput("quantity must not be negative")
	}

	if err := s.repo.SetItemQuantity(ctx, userID, variantID, qty); err != nil {
		return err
	}

	s.invalidateCount(ctx, userID)
	return nil
}

// RemoveItem deletes a line and reports whether it existed.
func (s *CartService) RemoveItem(ctx context.Context, userID, variantID string) (bool, error) {
	removed, err := s.repo.RemoveItem(ctx, userID, variantID)
	if err != nil {
		return false, fmt.Errorf("remove cart item: %w", err)
	}

	if removed {
		s.invalidateCount(ctx, userID)
	}
	return removed, nil
}

// Clear removes every line from the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.invalidateCount(ctx, userID)
	return nil
}

// CountItems returns the badge counter, served from the cache when fresh.
// Cache failures degrade to a database read.
func (s *CartService) CountItems(ctx context.Context, userID string) (int, error) {
	if count, found, err := s.cache.Get(ctx, userID); err == nil && found {
		return count, nil
	} else if err != nil {
		s.logger.WarnContext(ctx, "cart count cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	count, err := s.repo.CountItems(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}

	if err := s.cache.Set(ctx, userID, count); err != nil {
		s.logger.WarnContext(ctx, "cart count cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return count, nil
}

// invalidateCount drops the cached badge counter after a cart mutation.
func (s *CartService) invalidateCount(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "cart count cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
