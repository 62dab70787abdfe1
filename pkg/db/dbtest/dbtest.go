// Package dbtest opens isolated in-memory SQLite databases carrying the
// application schema for package tests.
package dbtest

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// schema mirrors pkg/migrate/migrations using SQLite types.
var schema = []string{
	`CREATE TABLE sellers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		shop_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL DEFAULT 'inactive',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		shop_name TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL,
		discount INTEGER NOT NULL DEFAULT 0,
		stock INTEGER NOT NULL DEFAULT 0,
		rating REAL NOT NULL DEFAULT 0,
		images TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE cart_items (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT cart_items_customer_product_key UNIQUE (customer_id, product_id)
	)`,
	`CREATE TABLE wishlist_items (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL,
		discount INTEGER NOT NULL DEFAULT 0,
		rating REAL NOT NULL DEFAULT 0,
		created_at DATETIME,
		CONSTRAINT wishlist_items_customer_product_key UNIQUE (customer_id, product_id)
	)`,
	`CREATE TABLE customer_orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		shipping_info TEXT NOT NULL,
		price NUMERIC NOT NULL,
		shipping_fee NUMERIC NOT NULL,
		commission NUMERIC NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		delivery_status TEXT NOT NULL DEFAULT 'pending',
		payment_due_at DATETIME,
		paid_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE seller_orders (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		price NUMERIC NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		delivery_status TEXT NOT NULL DEFAULT 'pending',
		shipping_info TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT seller_orders_order_seller_key UNIQUE (order_id, seller_id)
	)`,
	`CREATE TABLE order_line_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		seller_order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		snapshot TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE shop_wallet_entries (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		created_at DATETIME,
		CONSTRAINT uq_shop_wallet_entries_order UNIQUE (order_id)
	)`,
	`CREATE TABLE seller_wallet_entries (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		created_at DATETIME,
		CONSTRAINT uq_seller_wallet_entries_order_seller UNIQUE (order_id, seller_id)
	)`,
	`CREATE TABLE withdrawals (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		transfer_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE stripe_accounts (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL UNIQUE,
		stripe_account_id TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		created_at DATETIME
	)`,
	`CREATE TABLE chat_messages (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		sender_id TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL,
		receiver_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unseen',
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a client bound to a fresh in-memory database with every
// application table created. The database is closed when the test ends.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := unsafeName.ReplaceAllString(t.Name(), "_")
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])

	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: db.DriverSQLite}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	for _, stmt := range schema {
		if err := client.DB().Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return client
}
