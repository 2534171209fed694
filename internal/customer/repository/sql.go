package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/customer/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/database"
	"github.com/jmoiron/sqlx"
)

const customerColumns = `id, name, phone, loyalty_points, created_at, updated_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, c *model.Customer) error {
	query := `
        INSERT INTO customers (id, name, phone, loyalty_points, created_at, updated_at)
        VALUES (:id, :name, :phone, :loyalty_points, :created_at, :updated_at)
    `
	if _, err := r.DB.NamedExecContext(ctx, query, c); err != nil {
		return model.NewStoreError("insert customer", err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
}

func (r *SQLRepository) FindByNameAndPhone(ctx context.Context, name, phone string) (*model.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE name = ? AND phone = ? ORDER BY created_at LIMIT 1`, name, phone)
}

func (r *SQLRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.Customer, error) {
	var c model.Customer
	if err := r.DB.GetContext(ctx, &c, r.DB.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.NewStoreError("select customer", err)
	}
	return &c, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.CustomerFilters) ([]model.Customer, int, error) {
	var customers []model.Customer
	var count int

	where := ""
	var args []interface{}
	if f.SearchQuery != "" {
		where = " WHERE LOWER(name) LIKE ? OR phone LIKE ?"
		args = append(args, "%"+strings.ToLower(f.SearchQuery)+"%", "%"+f.SearchQuery+"%")
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM customers"+where), args...); err != nil {
		return nil, 0, model.NewStoreError("count customers", err)
	}

	query := "SELECT " + customerColumns + " FROM customers" + where + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	if err := r.DB.SelectContext(ctx, &customers, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, model.NewStoreError("select customers", err)
	}
	return customers, count, nil
}

func (r *SQLRepository) Update(ctx context.Context, c *model.Customer) error {
	query := `
        UPDATE customers
        SET name = :name,
            phone = :phone,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := r.DB.NamedExecContext(ctx, query, c); err != nil {
		return model.NewStoreError("update customer", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM customers WHERE id = ?"), id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("customer %s still has orders: %w", id, model.ErrConflict)
		}
		return model.NewStoreError("delete customer", err)
	}
	return nil
}

func (r *SQLRepository) OrderHistory(ctx context.Context, nameQuery string) ([]model.CustomerOrder, error) {
	query := r.DB.Rebind(`
        SELECT c.id AS customer_id, c.name AS customer_name, o.id AS order_id,
               o.payment_date, o.total_price, o.order_status
        FROM customers c
        JOIN orders o ON o.customer_id = c.id
        WHERE LOWER(c.name) LIKE ?
        ORDER BY o.payment_date DESC, o.created_at DESC
    `)

	var history []model.CustomerOrder
	if err := r.DB.SelectContext(ctx, &history, query, "%"+strings.ToLower(nameQuery)+"%"); err != nil {
		return nil, model.NewStoreError("select order history", err)
	}
	if len(history) == 0 {
		return history, nil
	}

	ids := make([]string, len(history))
	for i := range history {
		ids[i] = history[i].OrderID
	}

	linesQuery, args, err := sqlx.In(`
        SELECT ol.order_id, ol.item_id, i.name AS item_name, ol.quantity, ol.unit_price, ol.item_discount
        FROM order_lines ol
        JOIN items i ON i.id = ol.item_id
        WHERE ol.order_id IN (?)
        ORDER BY i.name
    `, ids)
	if err != nil {
		return nil, err
	}

	var lines []model.OrderLine
	if err := r.DB.SelectContext(ctx, &lines, r.DB.Rebind(linesQuery), args...); err != nil {
		return nil, model.NewStoreError("select order lines", err)
	}

	byOrder := make(map[string][]model.OrderLine, len(history))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	for i := range history {
		history[i].Items = byOrder[history[i].OrderID]
	}
	return history, nil
}

func (r *SQLRepository) FindWithOrdersBetween(ctx context.Context, start, end time.Time) ([]model.Customer, error) {
	query := r.DB.Rebind(`
        SELECT DISTINCT c.id, c.name, c.phone, c.loyalty_points, c.created_at, c.updated_at
        FROM customers c
        JOIN orders o ON o.customer_id = c.id
        WHERE o.payment_date >= ? AND o.payment_date < ?
        ORDER BY c.name
    `)

	var customers []model.Customer
	if err := r.DB.SelectContext(ctx, &customers, query, start, end); err != nil {
		return nil, model.NewStoreError("select monthly customers", err)
	}
	return customers, nil
}

func (r *SQLRepository) FindFirstOrderBetween(ctx context.Context, start, end time.Time) ([]model.Customer, error) {
	query := r.DB.Rebind(`
        SELECT ` + customerColumns + `
        FROM customers
        WHERE id IN (
            SELECT o.customer_id
            FROM orders o
            WHERE o.payment_date IS NOT NULL
            GROUP BY o.customer_id
            HAVING MIN(o.payment_date) >= ? AND MIN(o.payment_date) < ?
        )
        ORDER BY name
    `)

	var customers []model.Customer
	if err := r.DB.SelectContext(ctx, &customers, query, start, end); err != nil {
		return nil, model.NewStoreError("select new customers", err)
	}
	return customers, nil
}
