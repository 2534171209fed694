package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/supplier"
	"github.com/fekuna/flowershop-service/internal/supplier/dto"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemRefresher drops cached item views after the suppliers linked to them
// changed.
type ItemRefresher interface {
	RefreshItems(ctx context.Context, ids []string) error
}

type supplierUseCase struct {
	repo   supplier.Repository
	items  ItemRefresher
	logger logger.ZapLogger
}

// NewSupplierUseCase builds the supplier use case. items may be nil.
func NewSupplierUseCase(repo supplier.Repository, items ItemRefresher, log logger.ZapLogger) supplier.UseCase {
	return &supplierUseCase{
		repo:   repo,
		items:  items,
		logger: log,
	}
}

func (uc *supplierUseCase) CreateSupplier(ctx context.Context, input *dto.CreateSupplierInput) (*model.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	itemIDs, err := uc.validate(ctx, name, "", input.ItemIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &model.Supplier{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Contact:   strings.TrimSpace(input.Contact),
		ItemIDs:   itemIDs,
	}
	if err := uc.repo.Create(ctx, s); err != nil {
		return nil, err
	}

	uc.logger.Info("supplier created", zap.String("supplier_id", s.ID), zap.Int("items", len(itemIDs)))
	uc.refreshItems(ctx, itemIDs)
	return uc.GetSupplier(ctx, s.ID)
}

func (uc *supplierUseCase) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	s, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.NewNotFound("supplier", id)
	}
	return s, nil
}

func (uc *supplierUseCase) ListSuppliers(ctx context.Context, filters *dto.SupplierFilters) ([]model.Supplier, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *supplierUseCase) UpdateSupplier(ctx context.Context, input *dto.UpdateSupplierInput) (*model.Supplier, error) {
	existing, err := uc.GetSupplier(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	itemIDs, err := uc.validate(ctx, name, existing.ID, input.ItemIDs)
	if err != nil {
		return nil, err
	}

	// Items that lost the supplier need their cached names dropped as well.
	touched := append(append([]string{}, existing.ItemIDs...), itemIDs...)

	existing.Name = name
	existing.Contact = strings.TrimSpace(input.Contact)
	existing.ItemIDs = itemIDs
	existing.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	uc.refreshItems(ctx, touched)
	return uc.GetSupplier(ctx, existing.ID)
}

func (uc *supplierUseCase) DeleteSupplier(ctx context.Context, id string) error {
	existing, err := uc.GetSupplier(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.refreshItems(ctx, existing.ItemIDs)
	return nil
}

// refreshItems runs after the write is stored. A failure only leaves item
// listings stale until their cache expires, so it is logged.
func (uc *supplierUseCase) refreshItems(ctx context.Context, ids []string) {
	if uc.items == nil || len(ids) == 0 {
		return
	}
	if err := uc.items.RefreshItems(ctx, dedupe(ids)); err != nil {
		uc.logger.Warn("failed to refresh supplier items", zap.Strings("item_ids", ids), zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// validate checks the name and returns the item ids deduplicated and
// sorted. Every id must name an existing item.
func (uc *supplierUseCase) validate(ctx context.Context, name, excludeID string, itemIDs []string) ([]string, error) {
	if name == "" {
		return nil, model.NewInvalidInput("name", "is required")
	}

	unique, err := uc.repo.IsNameUnique(ctx, name, excludeID)
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, fmt.Errorf("supplier %q: %w", name, model.ErrConflict)
	}

	seen := make(map[string]bool, len(itemIDs))
	ids := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > 0 {
		found, err := uc.repo.CountItems(ctx, ids)
		if err != nil {
			return nil, err
		}
		if found != len(ids) {
			return nil, model.NewInvalidInput("item_ids", "unknown item")
		}
	}
	return ids, nil
}
