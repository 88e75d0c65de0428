package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/classmint/classmint-server/internal/model"
)

// schemaStatements creates the eight application tables.  All
// timestamps are unix-second integers supplied by the application so
// ledger hashes stay reproducible regardless of database timezone
// settings.  The ledger table has no UPDATE or DELETE path anywhere
// in the codebase.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		password_hash VARCHAR(100) NOT NULL,
		role VARCHAR(16) NOT NULL,
		is_active TINYINT NOT NULL DEFAULT 1,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at BIGINT NOT NULL,
		revoked_at BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		INDEX idx_refresh_tokens_hash (token_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		token VARCHAR(1024) NOT NULL,
		amount BIGINT NOT NULL,
		one_time TINYINT NOT NULL DEFAULT 1,
		expires_at BIGINT NOT NULL,
		issued_by BIGINT UNSIGNED NOT NULL DEFAULT 0,
		status VARCHAR(8) NOT NULL DEFAULT 'ACTIVE',
		created_at BIGINT NOT NULL,
		description TEXT,
		UNIQUE KEY uniq_tokens_token (token(255))
	)`,
	`CREATE TABLE IF NOT EXISTS claims (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		token_id BIGINT UNSIGNED NOT NULL,
		claimer BIGINT UNSIGNED NOT NULL,
		amount BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		INDEX idx_claims_token (token_id),
		INDEX idx_claims_claimer (claimer)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		tx_id BIGINT UNSIGNED NOT NULL,
		prev_hash CHAR(64) NOT NULL DEFAULT '',
		record_hash CHAR(64) NOT NULL,
		created_at BIGINT NOT NULL,
		block_data TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS user_balances (
		user_id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shop_items (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(190) NOT NULL,
		description TEXT,
		price BIGINT NOT NULL,
		category VARCHAR(64) NOT NULL DEFAULT 'general',
		image_url VARCHAR(512),
		stock BIGINT NOT NULL DEFAULT -1,
		status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		item_id BIGINT UNSIGNED NOT NULL,
		quantity BIGINT NOT NULL DEFAULT 1,
		total_price BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'COMPLETED',
		created_at BIGINT NOT NULL,
		INDEX idx_purchases_user (user_id)
	)`,
}

// EnsureSchema creates all tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// defaultItems seeds the classroom shop so a fresh install has
// something to buy.  Prices are minor units; stock -1 means
// unlimited.
var defaultItems = []struct {
	name        string
	description string
	price       int64
	category    string
	stock       int64
}{
	{"Apple", "Fresh red apple", 500, "food", 50},
	{"Book", "Educational book", 2000, "education", 20},
	{"Gift Card", "Special gift card", 1000, "general", 100},
	{"Coffee", "Hot coffee", 800, "food", 30},
	{"Game Time", "Extra game time", 1500, "entertainment", model.UnlimitedStock},
	{"Trophy", "Achievement trophy", 3000, "reward", 10},
}

// SeedDefaults inserts the default shop items, skipping any name that
// already exists, so it is safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	now := time.Now().Unix()
	for _, it := range defaultItems {
		var one int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM shop_items WHERE name = ? LIMIT 1`, it.name).Scan(&one)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return err
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO shop_items (name, description, price, category, image_url, stock, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?)`,
			it.name, it.description, it.price, it.category, it.stock, model.ItemStatusActive, now, now); err != nil {
			return err
		}
	}
	return nil
}
