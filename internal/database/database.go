package database

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"pocketledger/internal/config"
	"pocketledger/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// Manager owns the local store's database handle and schema.
type Manager struct {
	db     *gorm.DB
	driver string
}

// NewManager opens the database described by config.
func NewManager(cfg *Config) (*Manager, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN()})
	default:
		dialector = sqlite.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	if cfg.Driver == config.DriverPostgres {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// One connection keeps sqlite writes serialized and in-memory databases alive.
		sqlDB.SetMaxOpenConns(1)
	}

	driver := cfg.Driver
	if driver != config.DriverPostgres {
		driver = config.DriverSQLite
	}
	return &Manager{db: db, driver: driver}, nil
}

// GormConfig returns the gorm settings shared by the app and tests. Timestamps
// are stored in UTC so range queries compare consistently on sqlite.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

// Migrate applies pending SQL migrations embedded in the binary.
func (m *Manager) Migrate() error {
	logger.Get().Info("Running database migrations...")

	mig, src, err := m.migrator()
	if err != nil {
		return err
	}
	// Closing mig would close the shared connection pool; only release the source.
	defer func() {
		if err := src.Close(); err != nil {
			logger.Get().Warnf("migrate source close error: %v", err)
		}
	}()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// Rollback reverts the given number of migrations.
func (m *Manager) Rollback(steps int) error {
	mig, src, err := m.migrator()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if err := mig.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty.
func (m *Manager) Version() (uint, bool, error) {
	mig, src, err := m.migrator()
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = src.Close() }()

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

func (m *Manager) migrator() (*migrate.Migrate, source.Driver, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	dir := "migrations/sqlite"
	var driver migratedb.Driver
	if m.driver == config.DriverPostgres {
		dir = "migrations/postgres"
		driver, err = migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	} else {
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	mig, err := migrate.NewWithInstance("iofs", src, m.driver, driver)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mig, src, nil
}

// DB returns the underlying GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
