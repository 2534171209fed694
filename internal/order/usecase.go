package order

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/order/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	UpdateOrder(ctx context.Context, input *dto.UpdateOrderInput) (*model.Order, error)
	CancelOrder(ctx context.Context, id string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
