package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('superadmin', 'admin', 'user')),
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    category          TEXT NOT NULL DEFAULT 'stored',
    measuring_unit    TEXT NOT NULL,
    quantity          INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    is_refundable     INTEGER NOT NULL DEFAULT 1,
    status            TEXT NOT NULL DEFAULT 'in' CHECK (status IN ('in', 'out', 'deleted')),
    low_stock_alerted INTEGER NOT NULL DEFAULT 0,
    image             BLOB,
    image_mime        TEXT,
    added_by          TEXT REFERENCES users(id),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS releases (
    id                 TEXT PRIMARY KEY,
    item_id            TEXT NOT NULL REFERENCES items(id),
    qty_released       INTEGER NOT NULL CHECK (qty_released > 0),
    qty_returned       INTEGER NOT NULL DEFAULT 0 CHECK (qty_returned >= 0 AND qty_returned <= qty_released),
    released_to        TEXT NOT NULL,
    released_by        TEXT REFERENCES users(id),
    category           TEXT NOT NULL CHECK (category IN ('repair', 'refill', 'replace', 'borrow', 'consumed')),
    is_returnable      INTEGER NOT NULL,
    reason             TEXT NOT NULL,
    remarks            TEXT,
    expected_return_by DATETIME,
    approval_status    TEXT NOT NULL DEFAULT 'pending' CHECK (approval_status IN ('pending', 'approved', 'cancelled')),
    approved_by        TEXT REFERENCES users(id),
    return_status      TEXT NOT NULL DEFAULT 'not returned' CHECK (return_status IN ('not returned', 'partially returned', 'fully returned')),
    overdue_notified   INTEGER NOT NULL DEFAULT 0,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_releases_item ON releases(item_id);
CREATE INDEX IF NOT EXISTS idx_releases_approval ON releases(approval_status);

CREATE TABLE IF NOT EXISTS returns (
    id                TEXT PRIMARY KEY,
    release_id        TEXT NOT NULL REFERENCES releases(id),
    item_id           TEXT NOT NULL REFERENCES items(id),
    returned_by       TEXT NOT NULL,
    returned_by_email TEXT,
    quantity_returned INTEGER NOT NULL CHECK (quantity_returned > 0),
    condition         TEXT NOT NULL CHECK (condition IN ('good', 'damaged', 'expired', 'lost', 'other')),
    remarks           TEXT,
    credited          INTEGER NOT NULL DEFAULT 0,
    processed_by      TEXT REFERENCES users(id),
    date_returned     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_returns_release ON returns(release_id);

CREATE TABLE IF NOT EXISTS notifications (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    message     TEXT NOT NULL,
    quantity    INTEGER,
    item_id     TEXT,
    release_id  TEXT,
    schedule_id TEXT,
    is_read     INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schedules (
    id                       TEXT PRIMARY KEY,
    item_id                  TEXT NOT NULL REFERENCES items(id),
    category                 TEXT NOT NULL,
    quantity                 INTEGER NOT NULL CHECK (quantity > 0),
    scheduled_date           DATETIME NOT NULL,
    expected_completion_date DATETIME,
    remarks                  TEXT,
    reminder_at              DATETIME NOT NULL,
    reminded                 INTEGER NOT NULL DEFAULT 0,
    created_by               TEXT REFERENCES users(id),
    created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
