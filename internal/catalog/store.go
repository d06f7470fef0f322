// Package catalog implements the star catalog store over database/sql.
// It owns the schema, the JSON export seeding pipeline, and the read
// queries the spatial snapshot is built from.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	// Database drivers, selected by Config.Driver.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Source export filenames produced by the game client data dump.
const (
	CartographyFile = "stellar_cartography.json"
	LabelsFile      = "stellar_labels.json"
	TypeNamesFile   = "type_names_all.json"
)

// SnapshotSourcePaths returns the exports the spatial snapshot is built
// from, in fingerprint order.
func SnapshotSourcePaths(dataDir string) []string {
	return []string{
		filepath.Join(dataDir, CartographyFile),
		filepath.Join(dataDir, LabelsFile),
	}
}

// Config holds store connection settings.
type Config struct {
	Driver       string // sqlite, postgres
	DSN          string
	MaxOpenConns int
}

// Store is the catalog store. A single Store serves concurrent readers.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the configured database. Migrations are applied
// separately via Migrate.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("catalog: unknown driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog: dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// One connection keeps the seed transaction clear of SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &Store{db: db, driver: cfg.Driver, logger: logger}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for catalog store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// rebind rewrites ? placeholders to the $n form for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
