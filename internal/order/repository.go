package order

import (
	"context"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/order/dto"
	"github.com/fekuna/flowershop-service/internal/pricing"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)

	// RunInTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the set of writes one order operation may make. Every method
// runs inside the surrounding transaction.
type TxStore interface {
	// LockOrder loads the order with its lines and holds its row until the
	// transaction ends. A missing order is nil, nil.
	LockOrder(ctx context.Context, id string) (*model.Order, error)
	// LockItems loads and holds the given item rows, keyed by id. Unknown
	// ids are absent from the result.
	LockItems(ctx context.Context, ids []string) (map[string]model.Item, error)

	// FindCustomer returns nil, nil for an unknown id.
	FindCustomer(ctx context.Context, id string) (*model.Customer, error)
	FindOrCreateCustomer(ctx context.Context, name, phone string) (*model.Customer, error)

	InsertOrder(ctx context.Context, o *model.Order) error
	// UpdateOrder rewrites the order row and replaces its lines.
	UpdateOrder(ctx context.Context, o *model.Order) error
	DeleteOrder(ctx context.Context, id string) error

	ApplyStock(ctx context.Context, m *model.StockMovement) error
	ApplyLoyalty(ctx context.Context, adj pricing.LoyaltyAdjustment) error
}
