package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sola-scriptura-chat-api/pkg/schema/config"
)

// Pool settings shared by the API and the maintenance scripts.
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 1 * time.Minute
)

var (
	pgDB            *sqlx.DB
	pgOnce          sync.Once
	pgMu            sync.RWMutex
	postgresEnabled bool
)

// Open connects to uri, configures the pool and verifies connectivity.
func Open(ctx context.Context, uri string) (*sqlx.DB, error) {
	if uri == "" {
		return nil, fmt.Errorf("POSTGRES_URI is required")
	}

	conn, err := sqlx.ConnectContext(ctx, "postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)
	conn.SetConnMaxIdleTime(connMaxIdleTime)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	return conn, nil
}

// InitPostgres initializes the shared PostgreSQL connection from configuration.
func InitPostgres(ctx context.Context) error {
	var initErr error
	pgOnce.Do(func() {
		if err := config.LoadError(); err != nil {
			initErr = err
			return
		}

		conn, err := Open(ctx, config.GetConfig().PostgresURI)
		if err != nil {
			initErr = err
			return
		}

		pgMu.Lock()
		pgDB = conn
		postgresEnabled = true
		pgMu.Unlock()
	})
	return initErr
}

// PostgresEnabled returns whether Postgres is available
func PostgresEnabled() bool {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return postgresEnabled
}

// GetPostgres returns the PostgreSQL database instance
func GetPostgres() *sqlx.DB {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return pgDB
}

// ClosePostgres closes the PostgreSQL database connection
func ClosePostgres() error {
	pgMu.Lock()
	defer pgMu.Unlock()
	if pgDB != nil {
		postgresEnabled = false
		return pgDB.Close()
	}
	return nil
}
