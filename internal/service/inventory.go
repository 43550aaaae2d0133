package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/internal/repository"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

// InventoryService implements variant reads and stock administration.
type InventoryService struct {
	repo   repository.VariantRepository
	logger *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(repo repository.VariantRepository, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		repo:   repo,
		logger: logger,
	}
}

// GetVariant returns the variant with live stock.
func (s *InventoryService) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// SetStock sets the absolute stock quantity for a variant.
func (s *InventoryService) SetStock(ctx context.Context, id string, qty int) (*domain.Variant, error) {
	if qty < 0 {
		return nil, apperrors.InvalidInput("stock quantity must not be negative")
	}

	if err := s.repo.SetStock(ctx, id, qty); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock updated",
		slog.String("variant_id", id),
		slog.Int("stock_qty", qty),
	)

	return s.repo.GetByID(ctx, id)
}
