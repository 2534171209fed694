package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/flowershop-service/internal/inventory"
	"github.com/fekuna/flowershop-service/internal/inventory/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/cache"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultLowStockThreshold = 5

// ItemRefresher drops cached item views after their stock changed.
type ItemRefresher interface {
	RefreshItems(ctx context.Context, ids []string) error
}

type inventoryUseCase struct {
	repo      inventory.Repository
	locker    inventory.Locker
	items     ItemRefresher
	threshold int
	logger    logger.ZapLogger
}

// NewInventoryUseCase builds the stock adjustment use case. locker and items
// may be nil.
func NewInventoryUseCase(repo inventory.Repository, locker inventory.Locker, items ItemRefresher, lowStockThreshold int, log logger.ZapLogger) inventory.UseCase {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}
	return &inventoryUseCase{
		repo:      repo,
		locker:    locker,
		items:     items,
		threshold: lowStockThreshold,
		logger:    log,
	}
}

func ItemLockKey(itemID string) string {
	return "lock:item:" + itemID
}

func (uc *inventoryUseCase) AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*model.StockMovement, error) {
	itemID := strings.TrimSpace(input.ItemID)
	if itemID == "" {
		return nil, model.NewInvalidInput("item_id", "is required")
	}
	if input.QuantityChange == 0 {
		return nil, model.NewInvalidInput("quantity_change", "must not be zero")
	}

	if uc.locker != nil {
		unlock, err := uc.locker.Lock(ctx, ItemLockKey(itemID))
		if err != nil {
			if errors.Is(err, cache.ErrLockNotAcquired) {
				return nil, fmt.Errorf("item %s: %w", itemID, model.ErrBusy)
			}
			return nil, fmt.Errorf("lock item %s: %w", itemID, err)
		}
		defer unlock()
	}

	refType := model.ReferenceManual
	m := &model.StockMovement{
		ID:             uuid.New().String(),
		ItemID:         itemID,
		MovementType:   model.MovementAdjustment,
		QuantityChange: input.QuantityChange,
		ReferenceType:  &refType,
		Notes:          strings.TrimSpace(input.Reason),
	}
	if input.EmployeeID != "" {
		employee := input.EmployeeID
		m.CreatedBy = &employee
	}

	if err := uc.repo.AdjustStock(ctx, m); err != nil {
		return nil, err
	}

	uc.logger.Info("stock adjusted",
		zap.String("item_id", itemID),
		zap.Int("change", m.QuantityChange),
		zap.Int("stock", m.QuantityAfter),
	)

	if uc.items != nil {
		if err := uc.items.RefreshItems(ctx, []string{itemID}); err != nil {
			uc.logger.Warn("failed to refresh item after adjustment", zap.String("item_id", itemID), zap.Error(err))
		}
	}
	return m, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, threshold, page, pageSize int) ([]model.Item, int, error) {
	if threshold <= 0 {
		threshold = uc.threshold
	}
	return uc.repo.ListLowStock(ctx, threshold, page, pageSize)
}
