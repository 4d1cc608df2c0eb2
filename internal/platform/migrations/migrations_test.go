package migrations

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedSourceParses(t *testing.T) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		t.Fatalf("iofs: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first version: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first version 1, got %d", first)
	}
}

func TestEveryUpHasDown(t *testing.T) {
	entries, err := fs.ReadDir(Files(), ".")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Fatalf("migration %s has no down file", v)
		}
	}
}

func TestInitCreatesAllTables(t *testing.T) {
	body, err := fs.ReadFile(Files(), "0001_init.up.sql")
	if err != nil {
		t.Fatalf("read init: %v", err)
	}
	for _, table := range []string{"students", "admins", "shops", "menu_items", "orders", "order_items"} {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("init migration missing table %s", table)
		}
	}
	if strings.Contains(string(body), "REFERENCES students") {
		t.Fatalf("orders must not reference students")
	}
}

func TestApplyPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	if err := Apply(context.Background(), dsn); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// second run is a no-op
	if err := Apply(context.Background(), dsn); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
}
