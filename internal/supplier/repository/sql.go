package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/supplier/dto"
	"github.com/fekuna/flowershop-service/pkg/database"
	"github.com/jmoiron/sqlx"
)

const supplierColumns = `id, name, contact, created_at, updated_at`

type SQLRepository struct {
	DB *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

func (r *SQLRepository) Create(ctx context.Context, s *model.Supplier) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO suppliers (id, name, contact, created_at, updated_at)
        VALUES (:id, :name, :contact, :created_at, :updated_at)
    `
	if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("supplier %q: %w", s.Name, model.ErrConflict)
		}
		return model.NewStoreError("insert supplier", err)
	}
	if err := insertLinks(ctx, tx, s.ID, s.ItemIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError("commit", err)
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*model.Supplier, error) {
	var s model.Supplier
	query := r.DB.Rebind(`SELECT ` + supplierColumns + ` FROM suppliers WHERE id = ?`)
	if err := r.DB.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.NewStoreError("select supplier", err)
	}

	suppliers := []model.Supplier{s}
	if err := r.attachItems(ctx, suppliers); err != nil {
		return nil, err
	}
	return &suppliers[0], nil
}

func (r *SQLRepository) FindAll(ctx context.Context, f *dto.SupplierFilters) ([]model.Supplier, int, error) {
	var suppliers []model.Supplier
	var count int

	where := ""
	var args []interface{}
	if f.SearchQuery != "" {
		where = " WHERE LOWER(name) LIKE ? OR LOWER(contact) LIKE ?"
		like := "%" + strings.ToLower(f.SearchQuery) + "%"
		args = append(args, like, like)
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM suppliers"+where), args...); err != nil {
		return nil, 0, model.NewStoreError("count suppliers", err)
	}

	query := "SELECT " + supplierColumns + " FROM suppliers" + where + " ORDER BY name ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	if err := r.DB.SelectContext(ctx, &suppliers, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, model.NewStoreError("select suppliers", err)
	}
	if err := r.attachItems(ctx, suppliers); err != nil {
		return nil, 0, err
	}
	return suppliers, count, nil
}

func (r *SQLRepository) Update(ctx context.Context, s *model.Supplier) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	query := `
        UPDATE suppliers
        SET name = :name,
            contact = :contact,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("supplier %q: %w", s.Name, model.ErrConflict)
		}
		return model.NewStoreError("update supplier", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM item_suppliers WHERE supplier_id = ?"), s.ID); err != nil {
		return model.NewStoreError("delete supplier items", err)
	}
	if err := insertLinks(ctx, tx, s.ID, s.ItemIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError("commit", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM item_suppliers WHERE supplier_id = ?"), id); err != nil {
		return model.NewStoreError("delete supplier items", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM suppliers WHERE id = ?"), id); err != nil {
		return model.NewStoreError("delete supplier", err)
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError("commit", err)
	}
	return nil
}

func (r *SQLRepository) IsNameUnique(ctx context.Context, name, excludeID string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM suppliers WHERE LOWER(name) = LOWER(?)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}

	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, model.NewStoreError("check supplier name", err)
	}
	return count == 0, nil
}

func (r *SQLRepository) CountItems(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT count(*) FROM items WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return 0, model.NewStoreError("count items", err)
	}
	return count, nil
}

func insertLinks(ctx context.Context, tx *sqlx.Tx, supplierID string, itemIDs []string) error {
	query := tx.Rebind("INSERT INTO item_suppliers (item_id, supplier_id) VALUES (?, ?)")
	for _, itemID := range itemIDs {
		if _, err := tx.ExecContext(ctx, query, itemID, supplierID); err != nil {
			if database.IsForeignKeyViolation(err) {
				return model.NewNotFound("item", itemID)
			}
			return model.NewStoreError("insert supplier item", err)
		}
	}
	return nil
}

type supplierItemRow struct {
	SupplierID string `db:"supplier_id"`
	ItemID     string `db:"item_id"`
	ItemName   string `db:"item_name"`
}

func (r *SQLRepository) attachItems(ctx context.Context, suppliers []model.Supplier) error {
	if len(suppliers) == 0 {
		return nil
	}

	ids := make([]string, len(suppliers))
	for i := range suppliers {
		ids[i] = suppliers[i].ID
	}

	query, args, err := sqlx.In(`
        SELECT isup.supplier_id, i.id AS item_id, i.name AS item_name
        FROM item_suppliers isup
        JOIN items i ON i.id = isup.item_id
        WHERE isup.supplier_id IN (?)
        ORDER BY i.name
    `, ids)
	if err != nil {
		return err
	}

	var rows []supplierItemRow
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return model.NewStoreError("select supplier items", err)
	}

	for i := range suppliers {
		suppliers[i].ItemIDs = []string{}
		suppliers[i].ItemNames = []string{}
	}
	index := make(map[string]int, len(suppliers))
	for i := range suppliers {
		index[suppliers[i].ID] = i
	}
	for _, row := range rows {
		s := &suppliers[index[row.SupplierID]]
		s.ItemIDs = append(s.ItemIDs, row.ItemID)
		s.ItemNames = append(s.ItemNames, row.ItemName)
	}
	return nil
}
