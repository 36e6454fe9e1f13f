package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"pocketledger/internal/config"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"
)

var dbCounter atomic.Int64

func init() {
	logger.Init("test")
}

func newMemoryManager(t *testing.T) *Manager {
	t.Helper()

	n := dbCounter.Add(1)
	cfg := &Config{
		Driver: config.DriverSQLite,
		Path:   fmt.Sprintf("file:migratetest%d?mode=memory&cache=shared", n),
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMigrate(t *testing.T) {
	t.Run("creates every model table", func(t *testing.T) {
		m := newMemoryManager(t)
		if err := m.Migrate(); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}

		for _, model := range models.All() {
			if !m.DB().Migrator().HasTable(model) {
				t.Errorf("expected table for %T to exist", model)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		m := newMemoryManager(t)
		if err := m.Migrate(); err != nil {
			t.Fatalf("first migrate failed: %v", err)
		}
		if err := m.Migrate(); err != nil {
			t.Fatalf("second migrate failed: %v", err)
		}

		version, dirty, err := m.Version()
		if err != nil {
			t.Fatalf("version failed: %v", err)
		}
		if version != 2 || dirty {
			t.Errorf("expected clean version 2, got %d (dirty=%v)", version, dirty)
		}
	})

	t.Run("schema accepts gorm writes", func(t *testing.T) {
		m := newMemoryManager(t)
		if err := m.Migrate(); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}

		wallet := &models.Wallet{Name: "Cash", Type: models.WalletTypeCash, IsActive: true}
		if err := m.DB().Create(wallet).Error; err != nil {
			t.Fatalf("failed to insert wallet: %v", err)
		}
		var got models.Wallet
		if err := m.DB().First(&got, "id = ?", wallet.ID).Error; err != nil {
			t.Fatalf("failed to read wallet: %v", err)
		}
		if got.Name != "Cash" || !got.IsActive {
			t.Errorf("unexpected wallet %+v", got)
		}
	})

	t.Run("planning tables carry sync columns", func(t *testing.T) {
		m := newMemoryManager(t)
		if err := m.Migrate(); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}
		for _, model := range []interface{}{&models.Category{}, &models.Budget{}, &models.Bill{}, &models.Reminder{}, &models.Goal{}} {
			for _, column := range []string{"last_synced", "is_dirty", "revision"} {
				if !m.DB().Migrator().HasColumn(model, column) {
					t.Errorf("expected column %s on %T", column, model)
				}
			}
		}

		if err := m.Rollback(1); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if m.DB().Migrator().HasColumn(&models.Budget{}, "is_dirty") {
			t.Error("expected is_dirty to be dropped from budgets")
		}
		if !m.DB().Migrator().HasTable(&models.Budget{}) {
			t.Error("expected budgets table to survive a one-step rollback")
		}
	})

	t.Run("rollback drops tables", func(t *testing.T) {
		m := newMemoryManager(t)
		if err := m.Migrate(); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}
		if err := m.Rollback(2); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if m.DB().Migrator().HasTable(&models.Wallet{}) {
			t.Error("expected wallets table to be dropped")
		}
	})
}

func TestConfigDSN(t *testing.T) {
	t.Run("sqlite uses path", func(t *testing.T) {
		cfg := &Config{Driver: config.DriverSQLite, Path: "ledger.db"}
		if cfg.DSN() != "ledger.db" {
			t.Errorf("unexpected dsn %q", cfg.DSN())
		}
	})

	t.Run("postgres builds keyword dsn", func(t *testing.T) {
		cfg := &Config{Driver: config.DriverPostgres, Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
		want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
		if cfg.DSN() != want {
			t.Errorf("expected %q, got %q", want, cfg.DSN())
		}
	})
}
