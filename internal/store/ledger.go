package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/erazemk/storekeeper/internal/model"
)

// thresholdExpr reads the low-stock threshold inside a statement. Every
// low-stock decision goes through it, so alerting and re-arming agree.
var thresholdExpr = `COALESCE((SELECT CAST(value AS INTEGER) FROM settings WHERE key = '` +
	settingLowStockThreshold + `'), ` + strconv.Itoa(DefaultLowStockThreshold) + `)`

// Reserve takes qty units out of an item's stock and returns the new balance.
// The check and the decrement are a single statement, so concurrent callers
// can never drive the quantity below zero.
func Reserve(ctx context.Context, tx *sql.Tx, itemID string, qty int) (int, error) {
	if qty < 1 {
		return 0, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	var balance int
	err := tx.QueryRowContext(ctx,
		`UPDATE items
		 SET quantity = quantity - ?,
		     status = CASE WHEN quantity - ? <= 0 THEN 'out' ELSE 'in' END,
		     updated_at = ?
		 WHERE id = ? AND status != 'deleted' AND quantity >= ?
		 RETURNING quantity`,
		qty, qty, now(), itemID, qty,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reserving stock: %w", err)
	}

	var status string
	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT status, quantity FROM items WHERE id = ?`, itemID,
	).Scan(&status, &available)
	if errors.Is(err, sql.ErrNoRows) || status == model.ItemStatusDeleted {
		return 0, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("checking stock: %w", err)
	}
	return 0, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, qty, available)
}

// Credit puts qty units back into an item's stock and returns the new
// balance. Deleted items keep their status. Rising above the low-stock
// threshold re-arms the low-stock alert.
func Credit(ctx context.Context, tx *sql.Tx, itemID string, qty int) (int, error) {
	if qty < 1 {
		return 0, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	var balance int
	err := tx.QueryRowContext(ctx,
		`UPDATE items
		 SET quantity = quantity + ?,
		     status = CASE
		         WHEN status = 'deleted' THEN 'deleted'
		         WHEN quantity + ? <= 0 THEN 'out'
		         ELSE 'in' END,
		     low_stock_alerted = CASE
		         WHEN quantity + ? > `+thresholdExpr+` THEN 0
		         ELSE low_stock_alerted END,
		     updated_at = ?
		 WHERE id = ?
		 RETURNING quantity`,
		qty, qty, qty, now(), itemID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("crediting stock: %w", err)
	}
	return balance, nil
}
