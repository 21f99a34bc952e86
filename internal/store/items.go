package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/storekeeper/internal/model"
)

const itemColumns = `id, name, category, measuring_unit, quantity, is_refundable, status,
	image IS NOT NULL, added_by, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var addedBy sql.NullString
	err := s.Scan(&item.ID, &item.Name, &item.Category, &item.MeasuringUnit, &item.Quantity,
		&item.IsRefundable, &item.CurrentStatus, &item.HasImage, &addedBy,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if addedBy.Valid {
		item.AddedBy = &addedBy.String
	}
	return item, nil
}

// ItemInput holds the fields of a new item.
type ItemInput struct {
	Name          string
	Category      string
	MeasuringUnit string
	Quantity      int
	IsRefundable  *bool
	AddedBy       *string
}

// CreateItem creates a new item.
func CreateItem(ctx context.Context, db *sql.DB, in ItemInput) (*model.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !model.IsMeasuringUnit(in.MeasuringUnit) {
		return nil, fmt.Errorf("%w: unknown measuring unit %q", ErrValidation, in.MeasuringUnit)
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	if in.Category == "" {
		in.Category = model.DefaultItemCategory
	}
	refundable := true
	if in.IsRefundable != nil {
		refundable = *in.IsRefundable
	}

	id := newID()
	ts := now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, name, category, measuring_unit, quantity, is_refundable, status, added_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Category, in.MeasuringUnit, in.Quantity, boolInt(refundable),
		model.StockStatus(in.Quantity), in.AddedBy, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including deleted items.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows ListItems. Deleted items are only listed when Status
// asks for them.
type ItemFilter struct {
	Status         string
	Query          string
	RefundableOnly bool
}

// ListItems returns items ordered by name.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	} else {
		query += ` AND status != 'deleted'`
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		query += ` AND (name LIKE ? OR category LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if f.RefundableOnly {
		query += ` AND is_refundable = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListLowStockItems returns non-deleted items at or below threshold.
func ListLowStockItems(ctx context.Context, db *sql.DB, threshold int) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE status != 'deleted' AND quantity <= ?
		 ORDER BY quantity, name`, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("listing low stock items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ItemUpdate holds the fields to change; nil fields are left alone.
type ItemUpdate struct {
	Name          *string
	Category      *string
	MeasuringUnit *string
	Quantity      *int
	IsRefundable  *bool
}

// UpdateItem updates an item's metadata. Setting the quantity directly is a
// stock adjustment and recomputes the status like any ledger mutation.
func UpdateItem(ctx context.Context, db *sql.DB, id string, upd ItemUpdate) (*model.Item, error) {
	var sets []string
	var args []any

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if upd.Category != nil {
		category := strings.TrimSpace(*upd.Category)
		if category == "" {
			category = model.DefaultItemCategory
		}
		sets = append(sets, "category = ?")
		args = append(args, category)
	}
	if upd.MeasuringUnit != nil {
		if !model.IsMeasuringUnit(*upd.MeasuringUnit) {
			return nil, fmt.Errorf("%w: unknown measuring unit %q", ErrValidation, *upd.MeasuringUnit)
		}
		sets = append(sets, "measuring_unit = ?")
		args = append(args, *upd.MeasuringUnit)
	}
	if upd.IsRefundable != nil {
		sets = append(sets, "is_refundable = ?")
		args = append(args, boolInt(*upd.IsRefundable))
	}
	if upd.Quantity != nil {
		q := *upd.Quantity
		if q < 0 {
			return nil, fmt.Errorf("%w: quantity must not be negative", ErrValidation)
		}
		sets = append(sets,
			"quantity = ?",
			"status = ?",
			"low_stock_alerted = CASE WHEN ? > "+thresholdExpr+" THEN 0 ELSE low_stock_alerted END",
		)
		args = append(args, q, model.StockStatus(q), q)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id)

	res, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status != 'deleted'`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem soft-deletes an item. Its releases and returns stay readable.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET status = 'deleted', updated_at = ? WHERE id = ? AND status != 'deleted'`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id string, image []byte, mime string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = ?
		 WHERE id = ? AND status != 'deleted'`,
		image, mime, now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type. An item without
// an image yields ErrNotFound.
func GetItemImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && image == nil) {
		return nil, "", fmt.Errorf("%w: image for item %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
