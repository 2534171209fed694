package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	inventoryrepo "github.com/fekuna/flowershop-service/internal/inventory/repository"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/order"
	"github.com/fekuna/flowershop-service/internal/order/dto"
	"github.com/fekuna/flowershop-service/internal/pricing"
	"github.com/fekuna/flowershop-service/pkg/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `o.id, o.customer_id, c.name AS customer_name, o.employee_id, o.order_status,
        o.order_discount, o.payment_date, o.payment_method, o.total_price, o.budget, o.deposit,
        o.confirmation, o.receiver_address, o.receiver_phone, o.created_at, o.updated_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	query := r.DB.Rebind(`SELECT ` + orderColumns + ` FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.id = ?`)
	if err := r.DB.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.NewStoreError("select order", err)
	}

	orders := []model.Order{o}
	if err := attachLines(ctx, r.DB, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	var orders []model.Order
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.SearchQuery != "" {
		conditions = append(conditions, "LOWER(c.name) LIKE :search")
		args["search"] = "%" + strings.ToLower(f.SearchQuery) + "%"
	}
	if f.Status != "" {
		conditions = append(conditions, "o.order_status = :status")
		args["status"] = f.Status
	}
	if f.CustomerID != "" {
		conditions = append(conditions, "o.customer_id = :customer_id")
		args["customer_id"] = f.CustomerID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}
	from := " FROM orders o JOIN customers c ON c.id = o.customer_id"

	countQuery, countArgs, err := sqlx.Named("SELECT count(*)"+from+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, model.NewStoreError("count orders", err)
	}

	query := "SELECT " + orderColumns + from + whereClause + " ORDER BY o.created_at DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, model.NewStoreError("prepare orders", err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &orders, args); err != nil {
		return nil, 0, model.NewStoreError("select orders", err)
	}
	if err := attachLines(ctx, r.DB, orders); err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (r *SQLRepository) RunInTx(ctx context.Context, fn func(tx order.TxStore) error) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError("commit", err)
	}
	return nil
}

type txStore struct {
	tx *sqlx.Tx
}

func (s *txStore) LockOrder(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	query := s.tx.Rebind(`SELECT ` + orderColumns + ` FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.id = ? FOR UPDATE`)
	if err := s.tx.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.NewStoreError("lock order", err)
	}

	orders := []model.Order{o}
	if err := attachLines(ctx, s.tx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *txStore) LockItems(ctx context.Context, ids []string) (map[string]model.Item, error) {
	result := make(map[string]model.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	// A fixed lock order keeps concurrent orders from deadlocking.
	query, args, err := sqlx.In(`
        SELECT id, name, type, arrival_date, item_discount, price_amount, price_date,
               stock_quantity, created_at, updated_at
        FROM items
        WHERE id IN (?)
        ORDER BY id
        FOR UPDATE
    `, ids)
	if err != nil {
		return nil, err
	}

	var items []model.Item
	if err := s.tx.SelectContext(ctx, &items, s.tx.Rebind(query), args...); err != nil {
		return nil, model.NewStoreError("lock items", err)
	}
	for _, it := range items {
		result[it.ID] = it
	}
	return result, nil
}

func (s *txStore) FindCustomer(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	query := s.tx.Rebind(`SELECT id, name, phone, loyalty_points, created_at, updated_at FROM customers WHERE id = ?`)
	if err := s.tx.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.NewStoreError("select customer", err)
	}
	return &c, nil
}

func (s *txStore) FindOrCreateCustomer(ctx context.Context, name, phone string) (*model.Customer, error) {
	var c model.Customer
	query := s.tx.Rebind(`
        SELECT id, name, phone, loyalty_points, created_at, updated_at
        FROM customers
        WHERE name = ? AND phone = ?
        ORDER BY created_at
        LIMIT 1
    `)
	err := s.tx.GetContext(ctx, &c, query, name, phone)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewStoreError("select customer", err)
	}

	now := time.Now()
	c = model.Customer{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Phone:     phone,
	}
	insert := `
        INSERT INTO customers (id, name, phone, loyalty_points, created_at, updated_at)
        VALUES (:id, :name, :phone, :loyalty_points, :created_at, :updated_at)
    `
	if _, err := s.tx.NamedExecContext(ctx, insert, &c); err != nil {
		return nil, model.NewStoreError("insert customer", err)
	}
	return &c, nil
}

const insertOrderQuery = `
        INSERT INTO orders (
            id, customer_id, employee_id, order_status, order_discount, payment_date,
            payment_method, total_price, budget, deposit, confirmation,
            receiver_address, receiver_phone, created_at, updated_at
        )
        VALUES (
            :id, :customer_id, :employee_id, :order_status, :order_discount, :payment_date,
            :payment_method, :total_price, :budget, :deposit, :confirmation,
            :receiver_address, :receiver_phone, :created_at, :updated_at
        )
    `

func (s *txStore) InsertOrder(ctx context.Context, o *model.Order) error {
	if _, err := s.tx.NamedExecContext(ctx, insertOrderQuery, o); err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.NewNotFound("customer", o.CustomerID)
		}
		return model.NewStoreError("insert order", err)
	}
	return s.insertLines(ctx, o)
}

func (s *txStore) UpdateOrder(ctx context.Context, o *model.Order) error {
	query := `
        UPDATE orders
        SET employee_id = :employee_id,
            order_status = :order_status,
            order_discount = :order_discount,
            payment_date = :payment_date,
            payment_method = :payment_method,
            total_price = :total_price,
            budget = :budget,
            deposit = :deposit,
            confirmation = :confirmation,
            receiver_address = :receiver_address,
            receiver_phone = :receiver_phone,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := s.tx.NamedExecContext(ctx, query, o); err != nil {
		return model.NewStoreError("update order", err)
	}

	if _, err := s.tx.ExecContext(ctx, s.tx.Rebind(`DELETE FROM order_lines WHERE order_id = ?`), o.ID); err != nil {
		return model.NewStoreError("delete order lines", err)
	}
	return s.insertLines(ctx, o)
}

func (s *txStore) insertLines(ctx context.Context, o *model.Order) error {
	query := `
        INSERT INTO order_lines (order_id, item_id, quantity, unit_price, item_discount)
        VALUES (:order_id, :item_id, :quantity, :unit_price, :item_discount)
    `
	for i := range o.Lines {
		o.Lines[i].OrderID = o.ID
		if _, err := s.tx.NamedExecContext(ctx, query, &o.Lines[i]); err != nil {
			return model.NewStoreError("insert order line", err)
		}
	}
	return nil
}

func (s *txStore) DeleteOrder(ctx context.Context, id string) error {
	if _, err := s.tx.ExecContext(ctx, s.tx.Rebind(`DELETE FROM order_lines WHERE order_id = ?`), id); err != nil {
		return model.NewStoreError("delete order lines", err)
	}
	if _, err := s.tx.ExecContext(ctx, s.tx.Rebind(`DELETE FROM orders WHERE id = ?`), id); err != nil {
		return model.NewStoreError("delete order", err)
	}
	return nil
}

func (s *txStore) ApplyStock(ctx context.Context, m *model.StockMovement) error {
	return inventoryrepo.ApplyMovement(ctx, s.tx, m)
}

// ApplyLoyalty writes the reversal and the award as one statement, so the
// clamp at zero applies before the award.
func (s *txStore) ApplyLoyalty(ctx context.Context, adj pricing.LoyaltyAdjustment) error {
	if adj.IsZero() || adj.CustomerID == "" {
		return nil
	}
	query := s.tx.Rebind(`
        UPDATE customers
        SET loyalty_points = GREATEST(loyalty_points - ?, 0) + ?,
            updated_at = ?
        WHERE id = ?
    `)
	res, err := s.tx.ExecContext(ctx, query, adj.Reversed, adj.Awarded, time.Now(), adj.CustomerID)
	if err != nil {
		return model.NewStoreError("update loyalty points", err)
	}
	// updated_at always changes, so MySQL reports the row even when the
	// balance does not.
	n, err := res.RowsAffected()
	if err != nil {
		return model.NewStoreError("update loyalty points", err)
	}
	if n == 0 {
		return model.NewNotFound("customer", adj.CustomerID)
	}
	return nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// attachLines fills Lines for every order with one extra query.
func attachLines(ctx context.Context, q queryer, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	query, args, err := sqlx.In(`
        SELECT ol.order_id, ol.item_id, i.name AS item_name, ol.quantity, ol.unit_price, ol.item_discount
        FROM order_lines ol
        JOIN items i ON i.id = ol.item_id
        WHERE ol.order_id IN (?)
        ORDER BY i.name
    `, ids)
	if err != nil {
		return err
	}

	var lines []model.OrderLine
	if err := sqlx.SelectContext(ctx, q, &lines, q.Rebind(query), args...); err != nil {
		return model.NewStoreError("select order lines", err)
	}

	byOrder := make(map[string][]model.OrderLine, len(orders))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []model.OrderLine{}
		}
	}
	return nil
}
