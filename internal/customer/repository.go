package customer

import (
	"context"
	"time"

	"github.com/fekuna/flowershop-service/internal/customer/dto"
	"github.com/fekuna/flowershop-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id string) (*model.Customer, error)
	FindByNameAndPhone(ctx context.Context, name, phone string) (*model.Customer, error)
	FindAll(ctx context.Context, filters *dto.CustomerFilters) ([]model.Customer, int, error)
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id string) error

	// OrderHistory lists the orders, with their lines, of every customer
	// whose name contains nameQuery.
	OrderHistory(ctx context.Context, nameQuery string) ([]model.CustomerOrder, error)
	// FindWithOrdersBetween returns customers with a payment in [start, end).
	FindWithOrdersBetween(ctx context.Context, start, end time.Time) ([]model.Customer, error)
	// FindFirstOrderBetween returns customers whose first payment falls in [start, end).
	FindFirstOrderBetween(ctx context.Context, start, end time.Time) ([]model.Customer, error)
}
