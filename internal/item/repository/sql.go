package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/flowershop-service/internal/item/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/database"
	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, name, type, arrival_date, item_discount, price_amount, price_date,
        stock_quantity, created_at, updated_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, item *model.Item) error {
	query := `
        INSERT INTO items (
            id, name, type, arrival_date, item_discount, price_amount, price_date,
            stock_quantity, created_at, updated_at
        )
        VALUES (
            :id, :name, :type, :arrival_date, :item_discount, :price_amount, :price_date,
            :stock_quantity, :created_at, :updated_at
        )
    `
	if _, err := r.DB.NamedExecContext(ctx, query, item); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("item %q: %w", item.Name, model.ErrConflict)
		}
		return model.NewStoreError("insert item", err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	query := r.DB.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE id = ?`)
	if err := r.DB.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.NewStoreError("select item", err)
	}

	items := []model.Item{item}
	if err := r.attachSuppliers(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r *SQLRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	if len(ids) == 0 {
		return []model.Item{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM items WHERE id IN (?) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}

	var items []model.Item
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, model.NewStoreError("select items", err)
	}
	if err := r.attachSuppliers(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.ItemFilters) ([]model.Item, int, error) {
	var items []model.Item
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.InStock {
		conditions = append(conditions, "stock_quantity > 0")
	}
	if f.SearchQuery != "" {
		// LOWER/LIKE instead of ILIKE so the query also runs on MySQL.
		conditions = append(conditions, "(LOWER(name) LIKE :search OR LOWER(type) LIKE :search)")
		args["search"] = "%" + strings.ToLower(f.SearchQuery) + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM items"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, model.NewStoreError("count items", err)
	}

	orderBy := "name ASC"
	if f.SortBy != "" {
		switch f.SortBy {
		case "price":
			orderBy = "price_amount"
		case "stock":
			orderBy = "stock_quantity"
		case "created_at":
			orderBy = "created_at"
		default:
			orderBy = "name"
		}
		if strings.ToLower(f.SortOrder) == "desc" {
			orderBy += " DESC"
		} else {
			orderBy += " ASC"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM items%s ORDER BY %s", itemColumns, whereClause, orderBy)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, model.NewStoreError("prepare items", err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &items, args); err != nil {
		return nil, 0, model.NewStoreError("select items", err)
	}
	if err := r.attachSuppliers(ctx, items); err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *SQLRepository) Update(ctx context.Context, item *model.Item) error {
	query := `
        UPDATE items
        SET name = :name,
            type = :type,
            arrival_date = :arrival_date,
            item_discount = :item_discount,
            price_amount = :price_amount,
            price_date = :price_date,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := r.DB.NamedExecContext(ctx, query, item); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("item %q: %w", item.Name, model.ErrConflict)
		}
		return model.NewStoreError("update item", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM item_suppliers WHERE item_id = ?"), id); err != nil {
		return model.NewStoreError("delete item suppliers", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM items WHERE id = ?"), id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("item %s is still on orders: %w", id, model.ErrConflict)
		}
		return model.NewStoreError("delete item", err)
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError("commit", err)
	}
	return nil
}

func (r *SQLRepository) IsNameUnique(ctx context.Context, name, excludeID string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM items WHERE LOWER(name) = LOWER(?)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, model.NewStoreError("check item name", err)
	}
	return count == 0, nil
}

type itemSupplierRow struct {
	ItemID       string `db:"item_id"`
	SupplierName string `db:"supplier_name"`
}

// attachSuppliers fills Suppliers for every item with one extra query.
func (r *SQLRepository) attachSuppliers(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	query, args, err := sqlx.In(`
        SELECT isup.item_id, s.name AS supplier_name
        FROM item_suppliers isup
        JOIN suppliers s ON s.id = isup.supplier_id
        WHERE isup.item_id IN (?)
        ORDER BY s.name
    `, ids)
	if err != nil {
		return err
	}

	var rows []itemSupplierRow
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return model.NewStoreError("select item suppliers", err)
	}

	byItem := make(map[string][]string, len(items))
	for _, row := range rows {
		byItem[row.ItemID] = append(byItem[row.ItemID], row.SupplierName)
	}
	for i := range items {
		items[i].Suppliers = byItem[items[i].ID]
		if items[i].Suppliers == nil {
			items[i].Suppliers = []string{}
		}
	}
	return nil
}
