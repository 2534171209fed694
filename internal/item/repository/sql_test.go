package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemRowColumns = []string{"id", "name", "type", "arrival_date", "item_discount", "price_amount", "price_date", "stock_quantity", "created_at", "updated_at"}

func newMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestFindByID_AttachesSuppliers(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM items WHERE id = ").
		WithArgs("rose").
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("rose", "Rose", "flower", nil, "0.1", "10.00", nil, 12, now, now))
	mock.ExpectQuery("FROM item_suppliers").
		WithArgs("rose").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "supplier_name"}).
			AddRow("rose", "Bloom Co").
			AddRow("rose", "Petal Farm"))

	it, err := repo.FindByID(context.Background(), "rose")
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.True(t, it.PriceAmount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 12, it.StockQuantity)
	assert.Equal(t, []string{"Bloom Co", "Petal Farm"}, it.Suppliers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_Missing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM items WHERE id = ").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(itemRowColumns))

	it, err := repo.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestCreate_DuplicateName(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("INSERT INTO items").WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &model.Item{BaseModel: model.BaseModel{ID: "rose"}, Name: "Rose"})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestDelete_ItemOnOrders(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM item_suppliers WHERE item_id").WithArgs("rose").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM items WHERE id").WithArgs("rose").WillReturnError(&mysql.MySQLError{Number: 1451})
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "rose")
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsNameUnique_ExcludesSelf(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM items WHERE LOWER\\(name\\) = LOWER\\(\\?\\) AND id <> \\?").
		WithArgs("Rose", "rose").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	unique, err := repo.IsNameUnique(context.Background(), "Rose", "rose")
	require.NoError(t, err)
	assert.True(t, unique)
}
