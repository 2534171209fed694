package inventory

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/inventory/dto"
	"github.com/fekuna/flowershop-service/internal/model"
)

type Repository interface {
	// AdjustStock changes an item's stock by m.QuantityChange and logs m in
	// one transaction. QuantityBefore and QuantityAfter are filled in.
	AdjustStock(ctx context.Context, m *model.StockMovement) error
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	ListLowStock(ctx context.Context, threshold, page, pageSize int) ([]model.Item, int, error)
}
