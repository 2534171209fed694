package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/item"
	"github.com/fekuna/flowershop-service/internal/item/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	listCachePrefix = "items:list:"
	listCacheTTL    = 5 * time.Minute
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"name": { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"type": { "type": "keyword" },
			"price_amount": { "type": "double" },
			"item_discount": { "type": "double" },
			"stock_quantity": { "type": "integer" },
			"suppliers": { "type": "text" },
			"created_at": { "type": "date" }
		}
	}
}`

type itemUseCase struct {
	repo   item.Repository
	cache  item.Cache
	es     item.SearchIndex
	index  string
	logger logger.ZapLogger
}

// NewItemUseCase wires the item store with its optional list cache and
// search index. Either may be nil.
func NewItemUseCase(repo item.Repository, cache item.Cache, es item.SearchIndex, index string, log logger.ZapLogger) item.UseCase {
	if index == "" {
		index = "items"
	}
	return &itemUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		index:  index,
		logger: log,
	}
}

func (uc *itemUseCase) CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.Item, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateItem(name, input.ItemDiscount, input.PriceAmount); err != nil {
		return nil, err
	}
	if input.StockQuantity < 0 {
		return nil, model.NewInvalidInput("stock_quantity", "must not be negative")
	}

	unique, err := uc.repo.IsNameUnique(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, fmt.Errorf("item %q: %w", name, model.ErrConflict)
	}

	now := time.Now()
	it := &model.Item{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:          name,
		Type:          strings.TrimSpace(input.Type),
		ArrivalDate:   input.ArrivalDate,
		ItemDiscount:  input.ItemDiscount,
		PriceAmount:   input.PriceAmount,
		PriceDate:     input.PriceDate,
		StockQuantity: input.StockQuantity,
		Suppliers:     []string{},
	}

	if err := uc.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	uc.invalidateListCache(ctx)
	go uc.syncToElastic(context.Background(), *it)

	return it, nil
}

func (uc *itemUseCase) GetItem(ctx context.Context, id string) (*model.Item, error) {
	it, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, model.NewNotFound("item", id)
	}
	return it, nil
}

type cachedList struct {
	Items []model.Item
	Count int
}

func (uc *itemUseCase) ListItems(ctx context.Context, filters *dto.ItemFilters) ([]model.Item, int, error) {
	cacheKey := uc.cacheKey(filters)
	if uc.cache != nil && cacheKey != "" {
		if data, err := uc.cache.Get(ctx, cacheKey); err == nil {
			var cached cachedList
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached.Items, cached.Count, nil
			}
		}
	}

	if filters.SearchQuery != "" && uc.es != nil {
		items, total, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return items, total, nil
		}
		uc.logger.Warn("item search failed, falling back to database", zap.Error(err))
	}

	items, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if uc.cache != nil && cacheKey != "" {
		if data, err := json.Marshal(cachedList{Items: items, Count: count}); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, listCacheTTL); err != nil {
				uc.logger.Debug("failed to cache item list", zap.Error(err))
			}
		}
	}

	return items, count, nil
}

func (uc *itemUseCase) searchElastic(ctx context.Context, f *dto.ItemFilters) ([]model.Item, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", f.SearchQuery),
				"fields": []string{"name^3", "type", "suppliers"},
			},
		},
	}
	var filter []map[string]interface{}
	if f.InStock {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"stock_quantity": map[string]interface{}{"gt": 0}},
		})
	}
	if f.Type != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"type": f.Type},
		})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	q := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * f.PageSize
		q["size"] = f.PageSize
	}

	res, err := uc.es.Search(ctx, uc.index, q)
	if err != nil {
		return nil, 0, err
	}

	items := make([]model.Item, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var it model.Item
		if err := json.Unmarshal(hit.Source, &it); err != nil {
			uc.logger.Warn("skipping malformed search document", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	return items, res.Hits.Total.Value, nil
}

func (uc *itemUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.Item, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateItem(name, input.ItemDiscount, input.PriceAmount); err != nil {
		return nil, err
	}

	it, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, model.NewNotFound("item", input.ID)
	}

	if !strings.EqualFold(it.Name, name) {
		unique, err := uc.repo.IsNameUnique(ctx, name, it.ID)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, fmt.Errorf("item %q: %w", name, model.ErrConflict)
		}
	}

	it.Name = name
	it.Type = strings.TrimSpace(input.Type)
	it.ArrivalDate = input.ArrivalDate
	it.ItemDiscount = input.ItemDiscount
	it.PriceAmount = input.PriceAmount
	it.PriceDate = input.PriceDate
	it.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, it); err != nil {
		return nil, err
	}

	uc.invalidateListCache(ctx)
	go uc.syncToElastic(context.Background(), *it)

	return it, nil
}

func (uc *itemUseCase) DeleteItem(ctx context.Context, id string) error {
	it, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if it == nil {
		return model.NewNotFound("item", id)
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	uc.invalidateListCache(ctx)
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), uc.index, id); err != nil {
				uc.logger.Error("failed to delete item from search index", zap.String("item_id", id), zap.Error(err))
			}
		}()
	}

	return nil
}

func (uc *itemUseCase) RefreshItems(ctx context.Context, ids []string) error {
	uc.invalidateListCache(ctx)

	if uc.es == nil || len(ids) == 0 {
		return nil
	}

	items, err := uc.repo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := uc.es.Index(ctx, uc.index, it.ID, it); err != nil {
			return fmt.Errorf("index item %s: %w", it.ID, err)
		}
	}
	return nil
}

func (uc *itemUseCase) syncToElastic(ctx context.Context, it model.Item) {
	if uc.es == nil {
		return
	}
	// Index creation is lazy; an existing index is not an error.
	if err := uc.es.CreateIndex(ctx, uc.index, indexMapping); err != nil {
		uc.logger.Warn("failed to ensure item index", zap.Error(err))
	}
	if err := uc.es.Index(ctx, uc.index, it.ID, it); err != nil {
		uc.logger.Error("failed to index item", zap.String("item_id", it.ID), zap.Error(err))
	}
}

func (uc *itemUseCase) cacheKey(filters *dto.ItemFilters) string {
	data, err := json.Marshal(filters)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s%x", listCachePrefix, md5.Sum(data))
}

// invalidateListCache runs before the write returns. Cached pages must not
// outlive a write.
func (uc *itemUseCase) invalidateListCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, listCachePrefix+"*"); err != nil {
		uc.logger.Error("failed to invalidate item cache", zap.Error(err))
	}
}

func validateItem(name string, discount, price decimal.Decimal) error {
	if name == "" {
		return model.NewInvalidInput("name", "is required")
	}
	if discount.IsNegative() || discount.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return model.NewInvalidInput("item_discount", "must be in [0, 1)")
	}
	if price.IsNegative() {
		return model.NewInvalidInput("price_amount", "must not be negative")
	}
	return nil
}
