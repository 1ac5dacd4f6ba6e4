package pathcache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// widenVersion is the goose version of the constraint-widening migration.
const widenVersion = 2

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("pathcache: creating migration sub-filesystem: %w", err)
	}

	widen := goose.NewGoMigration(widenVersion, &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			changed, err := widenPathConstraint(ctx, tx)
			if changed {
				logger.Info("widened gdrive_ids unique constraint to (gdrive_id, path)")
			}

			return err
		},
	}, nil)

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS, goose.WithGoMigrations(widen))
	if err != nil {
		return fmt.Errorf("pathcache: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("pathcache: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.Int64("version", r.Source.Version),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// sqlExecQuerier is satisfied by *sql.DB and *sql.Tx.
type sqlExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	legacyUniqueRe = regexp.MustCompile(`UNIQUE\s*\(\s*gdrive_id\s*\)`)
	createTableRe  = regexp.MustCompile(`(?i)CREATE TABLE\s+(IF NOT EXISTS\s+)?["'\x60]?gdrive_ids["'\x60]?`)
)

// WidenPathConstraint rewrites a legacy gdrive_ids table whose unique
// constraint covers only gdrive_id so that it covers (gdrive_id, path). The
// table is recreated under a temporary name, rows are copied, the original
// is dropped and the copy renamed. Returns false when the table is missing
// or already widened. Safe to run any number of times.
func WidenPathConstraint(ctx context.Context, db *sql.DB) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("pathcache: beginning migration: %w", err)
	}

	changed, err := widenPathConstraint(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("pathcache: committing migration: %w", err)
	}

	return changed, nil
}

func widenPathConstraint(ctx context.Context, q sqlExecQuerier) (bool, error) {
	var ddl string

	err := q.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'gdrive_ids'`).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("pathcache: reading gdrive_ids schema: %w", err)
	}

	if !legacyUniqueRe.MatchString(ddl) {
		return false, nil
	}

	widened := legacyUniqueRe.ReplaceAllString(ddl, "UNIQUE (gdrive_id, path)")
	widened = createTableRe.ReplaceAllString(widened, "CREATE TABLE gdrive_ids2")

	stmts := []string{
		`DROP TABLE IF EXISTS gdrive_ids2`,
		widened,
		`INSERT INTO gdrive_ids2 (id, gdrive_id, path) SELECT id, gdrive_id, path FROM gdrive_ids`,
		`DROP TABLE gdrive_ids`,
		`ALTER TABLE gdrive_ids2 RENAME TO gdrive_ids`,
		`CREATE INDEX IF NOT EXISTS idx_gdrive_ids_path ON gdrive_ids (path)`,
	}

	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("pathcache: widening gdrive_ids: %w", err)
		}
	}

	return true, nil
}
