package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/easyshop-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	files, err := migrate.Scan(migrate.Migrations())
	if err != nil {
		t.Fatalf("scan embedded migrations: %v", err)
	}
	disk, err := migrate.Scan(os.DirFS("migrations"))
	if err != nil {
		t.Fatalf("scan source migrations: %v", err)
	}
	if len(files) == 0 || len(files) != len(disk) {
		t.Fatalf("embedded %d migrations, source has %d", len(files), len(disk))
	}
	for i := 1; i < len(files); i++ {
		if files[i].Version <= files[i-1].Version {
			t.Fatalf("migrations out of order at %s", files[i].Name)
		}
	}
}

func TestValidateRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := migrate.Validate(fsys); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWalletMigrationEnforcesIdempotentSettlement(t *testing.T) {
	content := readMigration(t, "*_create_wallets.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS shop_wallet_entries",
		"CREATE TABLE IF NOT EXISTS seller_wallet_entries",
		"CONSTRAINT uq_shop_wallet_entries_order UNIQUE (order_id)",
		"CONSTRAINT uq_seller_wallet_entries_order_seller UNIQUE (order_id, seller_id)",
		"BEFORE UPDATE OR DELETE ON seller_wallet_entries",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationTracksExpiry(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"payment_due_at timestamptz",
		"commission numeric(12,2) NOT NULL",
		"CONSTRAINT seller_orders_order_seller_key UNIQUE (order_id, seller_id)",
		"CREATE TABLE IF NOT EXISTS order_line_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSanitizesNameAndOrdersVersions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)

	first, err := migrate.Create(dir, "Add Seller Ratings!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(first) != "20260701093000_add_seller_ratings.sql" {
		t.Fatalf("unexpected filename %s", first)
	}

	second, err := migrate.Create(dir, "index ratings", now)
	if err != nil {
		t.Fatalf("create second migration: %v", err)
	}
	if filepath.Base(second) != "20260701093001_index_ratings.sql" {
		t.Fatalf("same-second migration should be bumped, got %s", second)
	}

	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("created migrations should validate: %v", err)
	}
	if _, err := migrate.Create(dir, "!!!", now); err == nil {
		t.Fatal("expected error for unusable name")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
