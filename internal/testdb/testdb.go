// Package testdb opens throwaway in-memory SQLite databases carrying the
// storefront schema. The DDL mirrors the Postgres migrations closely enough
// for domain logic tests: uuid defaults generate canonical dashed v4 ids
// (they must round-trip through uuid.UUID query parameters byte for byte)
// and the stock non-negativity CHECK is kept.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const uuidDefault = "(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-' || substr('89ab', abs(random()) % 4 + 1, 1) || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6))))"

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'customer',
		is_active INTEGER NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		default_address TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		slug TEXT,
		title TEXT,
		subtitle TEXT,
		description TEXT,
		category TEXT,
		tags TEXT,
		status TEXT DEFAULT 'draft',
		base_price_cents INTEGER DEFAULT 0,
		compare_at_price_cents INTEGER,
		is_featured INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE product_variants (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		product_id TEXT,
		sku TEXT,
		size TEXT,
		color TEXT,
		price_cents INTEGER DEFAULT 0,
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		low_stock_threshold INTEGER NOT NULL DEFAULT 5,
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE inventory_logs (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		variant_id TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity_change INTEGER NOT NULL,
		stock_after INTEGER NOT NULL,
		reason TEXT,
		actor_id TEXT,
		order_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		order_number TEXT NOT NULL UNIQUE,
		tracking_code TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		currency TEXT NOT NULL DEFAULT 'USD',
		subtotal_cents INTEGER NOT NULL,
		shipping_cents INTEGER NOT NULL DEFAULT 0,
		tax_cents INTEGER NOT NULL DEFAULT 0,
		total_cents INTEGER NOT NULL,
		shipping_method TEXT NOT NULL DEFAULT 'standard',
		shipping_address TEXT NOT NULL,
		billing_address TEXT,
		customer_notes TEXT,
		internal_notes TEXT,
		carrier TEXT,
		carrier_tracking_id TEXT,
		shipped_at DATETIME,
		delivered_at DATETIME,
		cancelled_at DATETIME,
		refunded_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		variant_id TEXT NOT NULL,
		product_title TEXT NOT NULL,
		variant_label TEXT NOT NULL,
		sku TEXT NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		qty INTEGER NOT NULL,
		total_cents INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		order_id TEXT NOT NULL UNIQUE,
		method TEXT NOT NULL DEFAULT 'card',
		status TEXT NOT NULL DEFAULT 'pending',
		amount_cents INTEGER NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		provider_reference TEXT,
		failure_reason TEXT,
		completed_at DATETIME,
		refunded_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlqs (
		id TEXT PRIMARY KEY DEFAULT ` + uuidDefault + `,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Open returns a fresh in-memory database seeded with the schema. Each call
// gets its own database so parallel tests never share state.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := "file:testdb_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			tb.Fatalf("create schema: %v", err)
		}
	}
	return db
}
