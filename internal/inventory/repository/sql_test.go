package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestAdjustStock_WritesMovement(t *testing.T) {
	repo, mock := newMock(t)
	m := &model.StockMovement{ID: "m1", ItemID: "rose", MovementType: model.MovementAdjustment, QuantityChange: 5}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock_quantity FROM items WHERE id = (.+) FOR UPDATE").
		WithArgs("rose").
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(3))
	mock.ExpectExec("UPDATE items SET stock_quantity").
		WithArgs(8, sqlmock.AnyArg(), "rose").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO stock_movements").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AdjustStock(context.Background(), m))
	assert.Equal(t, 3, m.QuantityBefore)
	assert.Equal(t, 8, m.QuantityAfter)
	assert.False(t, m.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock_NeverNegative(t *testing.T) {
	repo, mock := newMock(t)
	m := &model.StockMovement{ID: "m1", ItemID: "rose", QuantityChange: -4}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock_quantity FROM items").
		WithArgs("rose").
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.AdjustStock(context.Background(), m)
	var insufficient *model.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, 4, insufficient.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock_UnknownItem(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock_quantity FROM items").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}))
	mock.ExpectRollback()

	err := repo.AdjustStock(context.Background(), &model.StockMovement{ItemID: "ghost", QuantityChange: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
