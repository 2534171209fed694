package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestOrderHistory_GroupsLinesByOrder(t *testing.T) {
	repo, mock := newMock(t)
	paid := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM customers c\\s+JOIN orders o").
		WithArgs("%ann%").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "customer_name", "order_id", "payment_date", "total_price", "order_status"}).
			AddRow("c1", "Ann", "o1", paid, "20.25", "Completed").
			AddRow("c1", "Ann", "o2", nil, "0.00", "Cancelled"))
	mock.ExpectQuery("FROM order_lines ol").
		WithArgs("o1", "o2").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "item_id", "item_name", "quantity", "unit_price", "item_discount"}).
			AddRow("o1", "A", "Rose", 2, "10.00", "0.1").
			AddRow("o1", "B", "Tulip", 1, "5.00", "0").
			AddRow("o2", "A", "Rose", 4, "10.00", "0"))

	history, err := repo.OrderHistory(context.Background(), "Ann")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Len(t, history[0].Items, 2)
	assert.Len(t, history[1].Items, 1)
	assert.Equal(t, "20.25", history[0].TotalPrice.StringFixed(2))
	assert.Nil(t, history[1].PaymentDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderHistory_NoMatchSkipsLines(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM customers c").
		WithArgs("%zed%").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "customer_name", "order_id", "payment_date", "total_price", "order_status"}))

	history, err := repo.OrderHistory(context.Background(), "Zed")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindWithOrdersBetween_UsesHalfOpenWindow(t *testing.T) {
	repo, mock := newMock(t)
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	mock.ExpectQuery("o.payment_date >= \\? AND o.payment_date < \\?").
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "loyalty_points", "created_at", "updated_at"}).
			AddRow("c1", "Ann", "555", 3, start, start))

	customers, err := repo.FindWithOrdersBetween(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, int64(3), customers[0].LoyaltyPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}
