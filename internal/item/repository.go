package item

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/item/dto"
	"github.com/fekuna/flowershop-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id string) (*model.Item, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Item, error)
	FindAll(ctx context.Context, filters *dto.ItemFilters) ([]model.Item, int, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id string) error

	IsNameUnique(ctx context.Context, name, excludeID string) (bool, error)
}
