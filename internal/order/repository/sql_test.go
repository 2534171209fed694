package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/order"
	"github.com/fekuna/flowershop-service/internal/pricing"
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

func TestApplyLoyalty_OneStatement(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE customers\s+SET loyalty_points = GREATEST\(loyalty_points - \?, 0\) \+ \?`).
		WithArgs(int64(10), int64(5), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RunInTx(context.Background(), func(tx order.TxStore) error {
		return tx.ApplyLoyalty(context.Background(), pricing.LoyaltyAdjustment{CustomerID: "c1", Reversed: 10, Awarded: 5})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyLoyalty_MissingCustomer(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers").
		WithArgs(int64(0), int64(3), sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RunInTx(context.Background(), func(tx order.TxStore) error {
		return tx.ApplyLoyalty(context.Background(), pricing.LoyaltyAdjustment{CustomerID: "ghost", Awarded: 3})
	})
	var notFound *model.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "customer", notFound.Entity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyLoyalty_ZeroIsSkipped(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := repo.RunInTx(context.Background(), func(tx order.TxStore) error {
		return tx.ApplyLoyalty(context.Background(), pricing.LoyaltyAdjustment{CustomerID: "c1"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_lines").WithArgs("o1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM orders").WithArgs("o1").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.RunInTx(context.Background(), func(tx order.TxStore) error {
		return tx.DeleteOrder(context.Background(), "o1")
	})
	assert.ErrorIs(t, err, model.ErrStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrder_LoadsLines(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.id = \? FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "customer_name", "employee_id", "order_status", "order_discount",
			"payment_date", "payment_method", "total_price", "budget", "deposit", "confirmation",
			"receiver_address", "receiver_phone", "created_at", "updated_at",
		}).AddRow(
			"o1", "c1", "Dana", "emp-1", "Pending", "10",
			nil, "cash", "20.25", "0", "20", true,
			"", "", now, now,
		))
	mock.ExpectQuery("FROM order_lines ol").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "item_id", "item_name", "quantity", "unit_price", "item_discount"}).
			AddRow("o1", "A", "Rose", 2, "10", "0.1"))
	mock.ExpectCommit()

	var got *model.Order
	err := repo.RunInTx(context.Background(), func(tx order.TxStore) error {
		var err error
		got, err = tx.LockOrder(context.Background(), "o1")
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dana", got.CustomerName)
	assert.Equal(t, "20.25", got.TotalPrice.String())
	assert.Equal(t, "0.25", got.Remaining().String())
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
