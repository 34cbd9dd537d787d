package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate dir: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"snapshot JSONB NOT NULL",
		"CHECK (status IN ('PLACED', 'PACKED', 'OUT_FOR_DELIVERY', 'ARRIVING', 'DELIVERED', 'CANCELLED'))",
		"CHECK (payment_method <> 'UPI' OR payment_ref IS NOT NULL)",
		"CHECK (eta_minutes BETWEEN 20 AND 35)",
		"CHECK (rating IS NULL OR rating BETWEEN 1 AND 5)",
		"CREATE TABLE IF NOT EXISTS order_status_events",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsIndexes(t *testing.T) {
	content := readMigration(t, "create_outbox_events")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"WHERE published_at IS NULL",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"CONSTRAINT ux_outbox_dlq_event UNIQUE (event_id)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationEnforcesUniquePhone(t *testing.T) {
	content := readMigration(t, "create_users")
	if !strings.Contains(content, "CONSTRAINT ux_users_phone UNIQUE (phone)") {
		t.Fatal("expected unique phone constraint")
	}
}

func TestEmbeddedSourceMatchesDir(t *testing.T) {
	source, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	if err := migrate.ValidateFS(source); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	embedded, _ := fs.Glob(source, "*.sql")
	onDisk, _ := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("embedded %d files, dir has %d", len(embedded), len(onDisk))
	}
}

func TestSourceRejectsMissingDir(t *testing.T) {
	if _, err := migrate.Source(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20261017093000_add_order_notes.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("validate created migration: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add order notes", now); err == nil {
		t.Fatal("expected collision on same version and name")
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	const ok = "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {"1_init.sql": {Data: []byte(ok)}},
		"duplicate version": {
			"20261001090000_a.sql": {Data: []byte(ok)},
			"20261001090000_b.sql": {Data: []byte(ok)},
		},
		"missing down":   {"20261001090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"unclosed block": {"20261001090000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		if err := migrate.ValidateFS(fsys); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := migrate.ParseVersion("20261001090100"); err != nil || v != 20261001090100 {
		t.Fatalf("unexpected parse result %d %v", v, err)
	}
	if _, err := migrate.ParseVersion("2026"); err == nil {
		t.Fatal("expected short version to fail")
	}
}
