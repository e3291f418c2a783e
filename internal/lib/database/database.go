// Package database wraps sqlx with driver selection and connection
// lifecycle suited to container management: connect on start, ping for
// health, close on pre-destroy.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// Database drivers
	_ "github.com/go-sql-driver/mysql" // MySQL
	_ "github.com/lib/pq"              // PostgreSQL
	_ "modernc.org/sqlite"             // Pure Go SQLite

	"github.com/0xsj/go-loom/internal/lib/logger"
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// driverName maps config aliases to registered driver names.
func driverName(driver string) (string, error) {
	switch driver {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// DB is a container-managed database connection.
type DB struct {
	*sqlx.DB
	config *Config
	logger logger.Logger
}

func New(config *Config, log logger.Logger) *DB {
	if log == nil {
		log = logger.Discard()
	}
	return &DB{config: config, logger: log.WithComponent("database")}
}

// Connect establishes the connection pool. Idempotent.
func (d *DB) Connect(ctx context.Context) error {
	if d.DB != nil {
		return nil
	}

	driver, err := driverName(d.config.Driver)
	if err != nil {
		return err
	}

	timeout := d.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, driver, d.config.DSN)
	if err != nil {
		return fmt.Errorf("database connect (%s): %w", driver, err)
	}

	db.SetMaxOpenConns(d.config.MaxOpenConns)
	db.SetMaxIdleConns(d.config.MaxIdleConns)
	db.SetConnMaxLifetime(d.config.ConnMaxLifetime)
	d.DB = db

	d.logger.Info("Database connected",
		logger.String("driver", driver),
		logger.Int("max_open_conns", d.config.MaxOpenConns),
	)
	return nil
}

// HealthCheck pings the database.
func (d *DB) HealthCheck(ctx context.Context) error {
	if d.DB == nil {
		return fmt.Errorf("database not connected")
	}
	return d.PingContext(ctx)
}

// Close tears the pool down.
func (d *DB) Close() error {
	if d.DB == nil {
		return nil
	}
	d.logger.Info("Database closing")
	return d.DB.Close()
}
