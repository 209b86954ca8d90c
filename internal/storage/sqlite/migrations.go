package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Keys and identities are stored as base58 text.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    key TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    total_expenses INTEGER NOT NULL DEFAULT 0,
    expense_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_key TEXT NOT NULL,
    position INTEGER NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (group_key, position),
    UNIQUE (group_key, member),
    FOREIGN KEY (group_key) REFERENCES groups(key) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expenses (
    key TEXT PRIMARY KEY,
    group_key TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payer TEXT NOT NULL,
    description TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    created_at INTEGER NOT NULL,
    UNIQUE (group_key, seq),
    FOREIGN KEY (group_key) REFERENCES groups(key) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_group_members_group_key ON group_members(group_key);
CREATE INDEX IF NOT EXISTS idx_expenses_group_key ON expenses(group_key);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
