package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// The house itself is stored as one JSON document per row: settlement has
// to read and write the full balance state as a unit, and the document
// shape (nested balances and product data) maps poorly onto rows. The
// house_members table is a projection of the document's member list so
// that listing a user's houses stays a plain indexed query. Stock entries,
// transactions and settlement records are append-mostly and queried per
// house, so they get their own tables.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS houses (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    invite_code TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS house_members (
    house_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    PRIMARY KEY (house_id, user_id),
    FOREIGN KEY (house_id) REFERENCES houses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS stocks (
    id TEXT PRIMARY KEY,
    house_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    created_by TEXT NOT NULL,
    paid_by_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    cost INTEGER NOT NULL,
    amount INTEGER NOT NULL,
    removed INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (house_id) REFERENCES houses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    house_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    created_by TEXT NOT NULL,
    items TEXT NOT NULL,
    removed INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (house_id) REFERENCES houses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    house_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    type TEXT NOT NULL,
    doc TEXT NOT NULL,
    FOREIGN KEY (house_id) REFERENCES houses(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_house_members_user_id ON house_members(user_id);
CREATE INDEX IF NOT EXISTS idx_houses_invite_code ON houses(invite_code);
CREATE INDEX IF NOT EXISTS idx_stocks_house_id ON stocks(house_id);
CREATE INDEX IF NOT EXISTS idx_transactions_house_id ON transactions(house_id);
CREATE INDEX IF NOT EXISTS idx_settlements_house_id ON settlements(house_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
