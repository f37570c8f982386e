package db

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/diewo77/devinvoice/internal/config"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := Open(config.DatabaseConfig{Driver: "sqlite", SQLitePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"users", "clients", "invoices", "line_items", "number_sequence_buckets"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("missing table %s", table)
		}
	}
	if !conn.Migrator().HasIndex("number_sequence_buckets", "idx_sequence_bucket") {
		t.Error("missing bucket unique index")
	}
	if !conn.Migrator().HasIndex("invoices", "idx_invoice_owner_number") {
		t.Error("missing invoice number unique index")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMaskDSN(t *testing.T) {
	got := MaskDSN("host=db port=5432 user=u password=s3cret dbname=x sslmode=disable")
	want := "host=db port=5432 user=u password=*** dbname=x sslmode=disable"
	if got != want {
		t.Errorf("MaskDSN() = %q, want %q", got, want)
	}
}

func TestEmbeddedMigrationsPaired(t *testing.T) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	downs, err := fs.Glob(migrationFiles, "migrations/*.down.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 || len(ups) != len(downs) {
		t.Fatalf("expected paired migrations, got %d up and %d down", len(ups), len(downs))
	}
}

func TestApplyModes(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "apply.db")}
	conn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := Apply(conn, MigrateOff, cfg); err != nil {
		t.Fatalf("off: %v", err)
	}
	if conn.Migrator().HasTable("invoices") {
		t.Fatal("off must not create tables")
	}
	if err := Apply(conn, MigrateSQL, cfg); err == nil {
		t.Fatal("expected sql mode to refuse sqlite")
	}
	if err := Apply(conn, "bogus", cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if err := Apply(conn, MigrateAuto, cfg); err != nil {
		t.Fatalf("auto: %v", err)
	}
	if !conn.Migrator().HasTable("invoices") {
		t.Fatal("auto did not create tables")
	}
}
