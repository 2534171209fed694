package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/inventory/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/jmoiron/sqlx"
)

const movementColumns = `id, item_id, movement_type, quantity_change, quantity_before, quantity_after,
        reference_type, reference_id, notes, created_by, created_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) AdjustStock(ctx context.Context, m *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	if err := ApplyMovement(ctx, tx, m); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError("commit", err)
	}
	return nil
}

// ApplyMovement locks the item row, moves its stock by m.QuantityChange and
// records m, all inside tx. Stock never goes below zero: the attempt fails
// with an InsufficientStockError and nothing is written.
func ApplyMovement(ctx context.Context, tx *sqlx.Tx, m *model.StockMovement) error {
	var before int
	err := tx.GetContext(ctx, &before, tx.Rebind(`SELECT stock_quantity FROM items WHERE id = ? FOR UPDATE`), m.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewNotFound("item", m.ItemID)
		}
		return model.NewStoreError("lock item stock", err)
	}

	after := before + m.QuantityChange
	if after < 0 {
		return &model.InsufficientStockError{ItemID: m.ItemID, Available: before, Requested: -m.QuantityChange}
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE items SET stock_quantity = ?, updated_at = ? WHERE id = ?`),
		after, m.CreatedAt, m.ItemID); err != nil {
		return model.NewStoreError("update item stock", err)
	}

	m.QuantityBefore = before
	m.QuantityAfter = after
	query := `
        INSERT INTO stock_movements (
            id, item_id, movement_type, quantity_change, quantity_before, quantity_after,
            reference_type, reference_id, notes, created_by, created_at
        )
        VALUES (
            :id, :item_id, :movement_type, :quantity_change, :quantity_before, :quantity_after,
            :reference_type, :reference_id, :notes, :created_by, :created_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
		return model.NewStoreError("insert stock movement", err)
	}
	return nil
}

func (r *SQLRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var movements []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ItemID != "" {
		conditions = append(conditions, "item_id = :item_id")
		args["item_id"] = f.ItemID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM stock_movements"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, model.NewStoreError("count stock movements", err)
	}

	query := "SELECT " + movementColumns + " FROM stock_movements" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, model.NewStoreError("prepare stock movements", err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &movements, args); err != nil {
		return nil, 0, model.NewStoreError("select stock movements", err)
	}
	return movements, count, nil
}

func (r *SQLRepository) ListLowStock(ctx context.Context, threshold, page, pageSize int) ([]model.Item, int, error) {
	var items []model.Item
	var count int

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(`SELECT count(*) FROM items WHERE stock_quantity <= ?`), threshold); err != nil {
		return nil, 0, model.NewStoreError("count low stock", err)
	}

	query := `
        SELECT id, name, type, arrival_date, item_discount, price_amount, price_date,
               stock_quantity, created_at, updated_at
        FROM items
        WHERE stock_quantity <= ?
        ORDER BY stock_quantity ASC, name ASC`
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}

	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), threshold); err != nil {
		return nil, 0, model.NewStoreError("select low stock", err)
	}
	return items, count, nil
}
