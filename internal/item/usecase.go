package item

import (
	"context"
	"time"

	"github.com/fekuna/flowershop-service/internal/item/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/search"
)

type UseCase interface {
	CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, filters *dto.ItemFilters) ([]model.Item, int, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error

	// RefreshItems drops cached listings and re-indexes the given items after
	// their stock was changed outside this usecase.
	RefreshItems(ctx context.Context, ids []string) error
}

// Cache is the part of the redis client the item listings are cached in.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

type SearchIndex interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResult, error)
}
