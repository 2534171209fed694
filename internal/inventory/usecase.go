package inventory

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/inventory/dto"
	"github.com/fekuna/flowershop-service/internal/model"
)

type UseCase interface {
	AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*model.StockMovement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
	// ListLowStock lists items at or below threshold. A threshold of zero
	// or less uses the configured default.
	ListLowStock(ctx context.Context, threshold, page, pageSize int) ([]model.Item, int, error)
}

// Locker serializes writers of one key across instances.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
