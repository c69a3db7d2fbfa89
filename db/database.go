package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // registers the "libsql" database/sql driver
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the SQL backend holding the durable resources
type Options struct {
	Driver      string // sqlite, libsql or postgres
	DSN         string // file path (sqlite), database URL (libsql) or connection string (postgres)
	AuthToken   string // libsql only
	Environment string
}

// Open connects to the configured SQL backend
func Open(opts Options) (*gorm.DB, error) {
	// Determine log level based on environment
	logLevel := logger.Info
	if opts.Environment == "production" || opts.Environment == "test" {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite", "":
		if dir := filepath.Dir(opts.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// Enable WAL mode for better concurrency support
		dialector = sqlite.Open(opts.DSN + "?_journal_mode=WAL")
	case "libsql":
		dsn := opts.DSN
		if opts.AuthToken != "" {
			dsn += "?authToken=" + opts.AuthToken
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn})
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}

	database, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Database connection established (%s)", driverName(opts.Driver))
	return database, nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(database *gorm.DB, models ...interface{}) error {
	if database == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := database.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close(database *gorm.DB) error {
	if database == nil {
		return nil
	}

	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
