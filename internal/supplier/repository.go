package supplier

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/supplier/dto"
)

type Repository interface {
	// Create stores the supplier and its item links together.
	Create(ctx context.Context, s *model.Supplier) error
	FindByID(ctx context.Context, id string) (*model.Supplier, error)
	FindAll(ctx context.Context, filters *dto.SupplierFilters) ([]model.Supplier, int, error)
	// Update replaces the supplier's fields and its full set of item links.
	Update(ctx context.Context, s *model.Supplier) error
	Delete(ctx context.Context, id string) error
	IsNameUnique(ctx context.Context, name, excludeID string) (bool, error)
	CountItems(ctx context.Context, ids []string) (int, error)
}
