package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user'
                  CHECK (role IN ('user', 'moderator', 'admin', 'superuser')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS equipment (
    id                  INTEGER PRIMARY KEY,
    name                TEXT NOT NULL,
    category            TEXT NOT NULL,
    kind                TEXT NOT NULL DEFAULT 'primary'
                        CHECK (kind IN ('primary', 'secondary')),
    linked_equipment_id INTEGER REFERENCES equipment(id),
    quantity            INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    condition           TEXT NOT NULL DEFAULT 'good'
                        CHECK (condition IN ('new', 'good', 'fair', 'poor')),
    description         TEXT,
    image               BLOB,
    image_mime          TEXT,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at          DATETIME
);

CREATE TABLE IF NOT EXISTS responsibilities (
    id           INTEGER PRIMARY KEY,
    reference    TEXT NOT NULL UNIQUE,
    user_id      INTEGER NOT NULL REFERENCES users(id),
    equipment_id INTEGER NOT NULL REFERENCES equipment(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    status       TEXT NOT NULL DEFAULT 'pending'
                 CHECK (status IN ('pending', 'approved', 'rejected',
                                   'returned', 'overdue', 'waiting',
                                   'transferred')),
    request_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    issue_date   DATETIME,
    return_date  DATETIME,
    due_date     DATETIME,
    notes        TEXT,
    approved_by  INTEGER REFERENCES users(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_responsibilities_active
    ON responsibilities(user_id, equipment_id)
    WHERE status IN ('pending', 'approved', 'waiting');

CREATE INDEX IF NOT EXISTS idx_responsibilities_waitlist
    ON responsibilities(equipment_id, request_date)
    WHERE status = 'waiting';

CREATE TABLE IF NOT EXISTS transfer_links (
    id                INTEGER PRIMARY KEY,
    responsibility_id INTEGER NOT NULL REFERENCES responsibilities(id),
    from_user_id      INTEGER NOT NULL REFERENCES users(id),
    to_user_id        INTEGER NOT NULL REFERENCES users(id),
    date              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transfer_links_responsibility
    ON transfer_links(responsibility_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the
// end.
var migrations []string

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies migrations in order.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
