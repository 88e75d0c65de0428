package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testSchema mirrors the production schema in SQLite dialect.  The
// repositories stick to portable SQL (? placeholders, app-supplied
// unix timestamps), so the same queries run against both engines.
const testSchema = `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		revoked_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL UNIQUE,
		amount INTEGER NOT NULL,
		one_time INTEGER NOT NULL DEFAULT 1,
		expires_at INTEGER NOT NULL,
		issued_by INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token_id INTEGER NOT NULL,
		claimer INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE user_balances (
		user_id INTEGER PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_id INTEGER NOT NULL,
		prev_hash TEXT NOT NULL,
		record_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		block_data TEXT
	);

	CREATE TABLE shop_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		stock INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		total_price INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
`

func newTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	// A :memory: database exists per connection; one connection keeps
	// every query on the same schema.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

func insertTestUser(t *testing.T, db *sql.DB, username, role string) uint64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO users (username, password_hash, role, is_active, created_at, updated_at) VALUES (?, 'x', ?, 1, 0, 0)`,
		username, role)
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return uint64(id)
}
