// Package app wires the HTTP surface and the Postgres-backed store for the
// ScaffAI backend.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kkk9131/Scaff-Saas/app/config"

	_ "github.com/lib/pq"
)

// Store wraps the Postgres connection pool. It is constructed once at
// startup and injected into the server; there is no package-level instance.
type Store struct {
	db *sql.DB
}

// NewStore builds a Store around an existing pool. Tests pass a sqlmock db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OpenDB connects to Postgres using the env-driven config and verifies the
// connection with a ping.
func OpenDB(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
		cfg.DB.Name,
		cfg.DB.SSLMode,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return d, nil
}

// Ping verifies the backing connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
