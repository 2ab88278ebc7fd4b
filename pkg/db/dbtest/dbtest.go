// Package dbtest opens isolated in-memory SQLite databases carrying the order pipeline schema.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendora/vendora-backend/pkg/db/models"
	"github.com/vendora/vendora-backend/pkg/enums"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_by_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		base_price INTEGER NOT NULL DEFAULT 0,
		published_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE product_translations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		language_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		deleted_at DATETIME
	)`,
	`CREATE TABLE skus (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		value TEXT NOT NULL,
		price INTEGER NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		image TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE cart_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE payment_transactions (
		id INTEGER PRIMARY KEY,
		gateway TEXT NOT NULL,
		transaction_date DATETIME NOT NULL,
		account_number TEXT,
		sub_account TEXT,
		amount_in INTEGER NOT NULL DEFAULT 0,
		amount_out INTEGER NOT NULL DEFAULT 0,
		accumulated INTEGER NOT NULL DEFAULT 0,
		code TEXT,
		transaction_content TEXT,
		reference_number TEXT,
		body TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		shop_id INTEGER NOT NULL,
		payment_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING_PAYMENT',
		receiver TEXT NOT NULL,
		subtotal INTEGER NOT NULL,
		discount_amount INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL,
		commission_rate NUMERIC NOT NULL,
		admin_commission_amount INTEGER NOT NULL,
		shop_payout_amount INTEGER NOT NULL,
		payout_status TEXT NOT NULL DEFAULT 'PENDING',
		discount_code_id INTEGER,
		shipping_method_id INTEGER,
		payment_method_id INTEGER,
		created_by_id INTEGER NOT NULL,
		updated_by_id INTEGER,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		product_name TEXT NOT NULL,
		sku_value TEXT NOT NULL,
		sku_price INTEGER NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		product_translations TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME
	)`,
	`CREATE TABLE discount_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		value INTEGER NOT NULL,
		bearer TEXT NOT NULL DEFAULT 'ADMIN',
		shop_id INTEGER,
		usage_limit INTEGER NOT NULL DEFAULT 0,
		used_count INTEGER NOT NULL DEFAULT 0,
		valid_from DATETIME,
		valid_to DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		deleted_at DATETIME
	)`,
	`CREATE TABLE shipping_methods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		deleted_at DATETIME
	)`,
	`CREATE TABLE payment_methods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		deleted_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id INTEGER NOT NULL,
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
		aggregate_id INTEGER NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a fresh database with the full schema. The pool is pinned to a
// single connection so concurrent transactions serialize instead of failing on
// SQLite table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:vendora_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

// Seeder creates catalog fixtures with sensible defaults.
type Seeder struct {
	t    testing.TB
	db   *gorm.DB
	Now  time.Time
	next int
}

func NewSeeder(t testing.TB, conn *gorm.DB) *Seeder {
	return &Seeder{t: t, db: conn, Now: time.Now().UTC()}
}

// Shop creates a seller account.
func (s *Seeder) Shop() models.User {
	return s.user(enums.RoleSeller)
}

// Client creates a buyer account.
func (s *Seeder) Client() models.User {
	return s.user(enums.RoleClient)
}

func (s *Seeder) user(role enums.Role) models.User {
	s.t.Helper()
	s.next++
	u := models.User{
		Email: fmt.Sprintf("user%d@vendora.test", s.next),
		Name:  fmt.Sprintf("User %d", s.next),
		Role:  role,
	}
	if err := s.db.Create(&u).Error; err != nil {
		s.t.Fatalf("seed user: %v", err)
	}
	return u
}

// Product creates a published product for shopID with one translation.
func (s *Seeder) Product(shopID int64, name string) models.Product {
	s.t.Helper()
	published := s.Now.Add(-time.Hour)
	p := models.Product{CreatedByID: shopID, Name: name, PublishedAt: &published}
	if err := s.db.Create(&p).Error; err != nil {
		s.t.Fatalf("seed product: %v", err)
	}
	tr := models.ProductTranslation{ProductID: p.ID, LanguageID: "en", Name: name, Description: name + " description"}
	if err := s.db.Create(&tr).Error; err != nil {
		s.t.Fatalf("seed translation: %v", err)
	}
	return p
}

// SKU creates a variant for productID.
func (s *Seeder) SKU(productID int64, value string, price int64, stock int) models.SKU {
	s.t.Helper()
	sku := models.SKU{ProductID: productID, Value: value, Price: price, Stock: stock, Image: "https://cdn.vendora.test/" + value + ".png"}
	if err := s.db.Create(&sku).Error; err != nil {
		s.t.Fatalf("seed sku: %v", err)
	}
	return sku
}

// CartItem puts quantity of skuID into userID's cart.
func (s *Seeder) CartItem(userID, skuID int64, quantity int) models.CartItem {
	s.t.Helper()
	item := models.CartItem{UserID: userID, SKUID: skuID, Quantity: quantity}
	if err := s.db.Create(&item).Error; err != nil {
		s.t.Fatalf("seed cart item: %v", err)
	}
	return item
}

// Stock reads the current stock of skuID.
func (s *Seeder) Stock(skuID int64) int {
	s.t.Helper()
	var sku models.SKU
	if err := s.db.First(&sku, skuID).Error; err != nil {
		s.t.Fatalf("load sku: %v", err)
	}
	return sku.Stock
}
