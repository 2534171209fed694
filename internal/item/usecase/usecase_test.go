package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/flowershop-service/internal/item/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/fekuna/flowershop-service/pkg/search"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	items    map[string]model.Item
	findAlls int
}

func newFakeRepo(items ...model.Item) *fakeRepo {
	r := &fakeRepo{items: map[string]model.Item{}}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, it *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = *it
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *fakeRepo) FindByIDs(_ context.Context, ids []string) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Item
	for _, id := range ids {
		if it, ok := r.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindAll(_ context.Context, f *dto.ItemFilters) ([]model.Item, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findAlls++
	var out []model.Item
	for _, it := range r.items {
		if f.InStock && it.StockQuantity <= 0 {
			continue
		}
		if f.SearchQuery != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.SearchQuery)) {
			continue
		}
		out = append(out, it)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Update(_ context.Context, it *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = *it
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) IsNameUnique(_ context.Context, name, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID != excludeID && strings.EqualFold(it.Name, name) {
			return false, nil
		}
	}
	return true, nil
}

func (r *fakeRepo) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findAlls
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type fakeSearch struct {
	mu      sync.Mutex
	docs    map[string]model.Item
	failing bool
}

func newFakeSearch() *fakeSearch { return &fakeSearch{docs: map[string]model.Item{}} }

func (s *fakeSearch) CreateIndex(context.Context, string, string) error { return nil }

func (s *fakeSearch) Index(_ context.Context, _ string, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc.(model.Item)
	return nil
}

func (s *fakeSearch) Delete(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *fakeSearch) Search(_ context.Context, _ string, _ map[string]interface{}) (*search.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("cluster unavailable")
	}
	res := &search.SearchResult{}
	for id, doc := range s.docs {
		src, _ := json.Marshal(doc)
		res.Hits.Hits = append(res.Hits.Hits, struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		}{ID: id, Source: src})
	}
	res.Hits.Total.Value = len(res.Hits.Hits)
	return res, nil
}

func (s *fakeSearch) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	return ok
}

func rose() model.Item {
	return model.Item{
		BaseModel:     model.BaseModel{ID: "rose"},
		Name:          "Rose",
		Type:          "flower",
		PriceAmount:   decimal.RequireFromString("10.00"),
		StockQuantity: 12,
	}
}

func TestCreateItem_Validation(t *testing.T) {
	uc := NewItemUseCase(newFakeRepo(), nil, nil, "", logger.NewNop())

	_, err := uc.CreateItem(context.Background(), &dto.CreateItemInput{Name: "  "})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = uc.CreateItem(context.Background(), &dto.CreateItemInput{Name: "Tulip", ItemDiscount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = uc.CreateItem(context.Background(), &dto.CreateItemInput{Name: "Tulip", PriceAmount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = uc.CreateItem(context.Background(), &dto.CreateItemInput{Name: "Tulip", StockQuantity: -3})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCreateItem_DuplicateName(t *testing.T) {
	uc := NewItemUseCase(newFakeRepo(rose()), nil, nil, "", logger.NewNop())

	_, err := uc.CreateItem(context.Background(), &dto.CreateItemInput{Name: "rose"})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestCreateItem_InvalidatesCacheAndIndexes(t *testing.T) {
	repo := newFakeRepo(rose())
	cache := newFakeCache()
	es := newFakeSearch()
	uc := NewItemUseCase(repo, cache, es, "items", logger.NewNop())
	ctx := context.Background()

	_, _, err := uc.ListItems(ctx, &dto.ItemFilters{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.size())

	created, err := uc.CreateItem(ctx, &dto.CreateItemInput{
		Name:          "Tulip",
		PriceAmount:   decimal.RequireFromString("4.50"),
		StockQuantity: 30,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Zero(t, cache.size(), "listings are dropped synchronously")

	assert.Eventually(t, func() bool { return es.has(created.ID) }, time.Second, 10*time.Millisecond)
}

func TestListItems_CacheAside(t *testing.T) {
	repo := newFakeRepo(rose())
	uc := NewItemUseCase(repo, newFakeCache(), nil, "", logger.NewNop())
	ctx := context.Background()

	first, count, err := uc.ListItems(ctx, &dto.ItemFilters{InStock: true})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	second, _, err := uc.ListItems(ctx, &dto.ItemFilters{InStock: true})
	require.NoError(t, err)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, 1, repo.listCalls(), "second page comes from the cache")

	_, _, err = uc.ListItems(ctx, &dto.ItemFilters{InStock: false})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls(), "different filters use a different key")
}

func TestListItems_SearchFallsBackToDatabase(t *testing.T) {
	repo := newFakeRepo(rose())
	es := newFakeSearch()
	es.docs["rose"] = rose()
	uc := NewItemUseCase(repo, nil, es, "items", logger.NewNop())
	ctx := context.Background()

	items, total, err := uc.ListItems(ctx, &dto.ItemFilters{SearchQuery: "ros"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Rose", items[0].Name)
	assert.Zero(t, repo.listCalls())

	es.failing = true
	items, total, err = uc.ListItems(ctx, &dto.ItemFilters{SearchQuery: "ros"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Rose", items[0].Name)
	assert.Equal(t, 1, repo.listCalls())
}

func TestGetItem_NotFound(t *testing.T) {
	uc := NewItemUseCase(newFakeRepo(), nil, nil, "", logger.NewNop())

	_, err := uc.GetItem(context.Background(), "missing")
	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "item", nf.Entity)
}

func TestUpdateItem_KeepsStock(t *testing.T) {
	repo := newFakeRepo(rose())
	uc := NewItemUseCase(repo, nil, nil, "", logger.NewNop())

	updated, err := uc.UpdateItem(context.Background(), &dto.UpdateItemInput{
		ID:           "rose",
		Name:         "Red Rose",
		Type:         "flower",
		PriceAmount:  decimal.RequireFromString("12.00"),
		ItemDiscount: decimal.RequireFromString("0.1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Red Rose", updated.Name)
	assert.Equal(t, 12, updated.StockQuantity)
}

func TestDeleteItem(t *testing.T) {
	repo := newFakeRepo(rose())
	es := newFakeSearch()
	es.docs["rose"] = rose()
	uc := NewItemUseCase(repo, nil, es, "items", logger.NewNop())

	require.NoError(t, uc.DeleteItem(context.Background(), "rose"))
	assert.Eventually(t, func() bool { return !es.has("rose") }, time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, uc.DeleteItem(context.Background(), "rose"), model.ErrNotFound)
}

func TestRefreshItems(t *testing.T) {
	it := rose()
	repo := newFakeRepo(it)
	cache := newFakeCache()
	cache.data[listCachePrefix+"stale"] = []byte("{}")
	es := newFakeSearch()
	uc := NewItemUseCase(repo, cache, es, "items", logger.NewNop())

	it.StockQuantity = 3
	require.NoError(t, repo.Update(context.Background(), &it))

	require.NoError(t, uc.RefreshItems(context.Background(), []string{"rose"}))
	assert.Zero(t, cache.size())
	require.True(t, es.has("rose"))
	assert.Equal(t, 3, es.docs["rose"].StockQuantity)
}
