package database

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"example.com/finance-tracker/internal/config"
)

// TestMigrationURL проверяет замену схемы DSN для драйвера миграций.
func TestMigrationURL(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "finance", SSLMode: "disable"}

	got := migrationURL(cfg.DSN())
	if !strings.HasPrefix(got, "pgx5://u:p@db:5432/finance") {
		t.Fatalf("unexpected url %s", got)
	}
	if !strings.HasSuffix(got, "sslmode=disable") {
		t.Fatalf("expected sslmode to be kept, got %s", got)
	}
}

// TestMigrationsArePaired проверяет наличие up и down для каждой миграции.
func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	if len(ups) == 0 {
		t.Fatal("expected migrations to be embedded")
	}
	for name := range ups {
		if !downs[name] {
			t.Fatalf("missing down migration for %s", name)
		}
	}
}

// TestPoolConfig проверяет перенос настроек пула.
func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "finance",
		Password:        "secret",
		Name:            "finance_tracker",
		SSLMode:         "disable",
		MaxOpenConns:    12,
		MaxIdleConns:    3,
		ConnMaxIdleTime: time.Minute,
		ConnMaxLifetime: time.Hour,
	}

	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if poolConfig.MaxConns != 12 || poolConfig.MinConns != 3 {
		t.Fatalf("unexpected pool sizes: max=%d min=%d", poolConfig.MaxConns, poolConfig.MinConns)
	}
	if poolConfig.MaxConnLifetime != time.Hour {
		t.Fatalf("unexpected lifetime: %s", poolConfig.MaxConnLifetime)
	}
	if poolConfig.ConnConfig.Database != "finance_tracker" {
		t.Fatalf("unexpected database: %s", poolConfig.ConnConfig.Database)
	}
}
