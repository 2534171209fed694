package customer

import (
	"context"
	"time"

	"github.com/fekuna/flowershop-service/internal/customer/dto"
	"github.com/fekuna/flowershop-service/internal/model"
)

type UseCase interface {
	CreateCustomer(ctx context.Context, input *dto.CreateCustomerInput) (*model.Customer, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context, filters *dto.CustomerFilters) ([]model.Customer, int, error)
	UpdateCustomer(ctx context.Context, input *dto.UpdateCustomerInput) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	// FindOrCreate returns the customer with exactly this name and phone,
	// creating it if there is none. created reports which happened.
	FindOrCreate(ctx context.Context, name, phone string) (c *model.Customer, created bool, err error)

	OrderHistory(ctx context.Context, nameQuery string) ([]model.CustomerOrder, error)
	MonthlyCustomers(ctx context.Context, now time.Time) ([]model.Customer, error)
	NewCustomers(ctx context.Context, now time.Time) ([]model.Customer, error)
}
