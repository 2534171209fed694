package supplier

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/supplier/dto"
)

type UseCase interface {
	CreateSupplier(ctx context.Context, input *dto.CreateSupplierInput) (*model.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, filters *dto.SupplierFilters) ([]model.Supplier, int, error)
	UpdateSupplier(ctx context.Context, input *dto.UpdateSupplierInput) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error
}
