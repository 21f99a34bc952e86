package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// Setting keys.
const (
	settingJWTSecret         = "jwt_secret"
	settingLowStockThreshold = "low_stock_threshold"
)

// DefaultLowStockThreshold applies until a threshold is stored.
const DefaultLowStockThreshold = 5

// getSetting returns the stored value and whether the key exists.
func getSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// putSetting upserts key. With keep set an existing value wins.
func putSetting(ctx context.Context, db *sql.DB, key, value string, keep bool) error {
	query := `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if keep {
		query = `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`
	}
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

// GetJWTSecret returns the signing secret, creating a random one on first
// use. Concurrent first calls agree on whichever insert landed.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	if err := putSetting(ctx, db, settingJWTSecret, hex.EncodeToString(buf), true); err != nil {
		return "", err
	}

	secret, ok, err := getSetting(ctx, db, settingJWTSecret)
	if err != nil {
		return "", err
	}
	if !ok || secret == "" {
		return "", errors.New("jwt secret missing after insert")
	}
	return secret, nil
}

// SetLowStockThreshold stores the quantity at or below which items count as
// low on stock.
func SetLowStockThreshold(ctx context.Context, db *sql.DB, threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative", ErrValidation)
	}
	return putSetting(ctx, db, settingLowStockThreshold, strconv.Itoa(threshold), false)
}

// GetLowStockThreshold returns the stored threshold, or the default.
func GetLowStockThreshold(ctx context.Context, db *sql.DB) (int, error) {
	value, ok, err := getSetting(ctx, db, settingLowStockThreshold)
	if err != nil || !ok {
		return DefaultLowStockThreshold, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing low stock threshold %q: %w", value, err)
	}
	return n, nil
}
