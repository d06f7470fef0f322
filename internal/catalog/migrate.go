package catalog

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies pending schema migrations in lexical filename order.
// Applied versions are recorded in schema_migrations and skipped on the
// next run.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return &Error{Op: "create schema_migrations", Err: err}
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return &Error{Op: "read migrations", Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		applied, err := s.migrationApplied(ctx, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := s.applyMigration(ctx, name); err != nil {
			return err
		}
		s.logger.Info("applied migration", zap.String("version", name))
	}
	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`), version,
	).Scan(&count)
	if err != nil {
		return false, &Error{Op: "check migration " + version, Err: err}
	}
	return count > 0, nil
}

func (s *Store) applyMigration(ctx context.Context, name string) error {
	content, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return &Error{Op: "read migration " + name, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "begin migration " + name, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	// Migration files hold plain DDL, one statement per semicolon.
	for _, stmt := range strings.Split(string(content), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &Error{Op: "apply migration " + name, Err: fmt.Errorf("%q: %w", firstLine(stmt), err)}
		}
	}

	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), name,
	); err != nil {
		return &Error{Op: "record migration " + name, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Op: "commit migration " + name, Err: err}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
