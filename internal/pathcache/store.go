// Package pathcache maps logical library folder paths to Google Drive folder
// IDs. Entries live in a small SQLite database and are filled lazily by the
// Resolver, which walks the remote tree only for path prefixes it has not
// seen before.
package pathcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // register the pure-Go SQLite driver
)

// Entry is one cached path mapping.
type Entry struct {
	ID       int64
	RemoteID string
	Path     string
}

// SQL statements.
const (
	sqlLookup = `SELECT gdrive_id FROM gdrive_ids WHERE path = ? AND gdrive_id IS NOT NULL AND gdrive_id <> '' ORDER BY id LIMIT 1`

	sqlInsert = `INSERT INTO gdrive_ids (gdrive_id, path) VALUES (?, ?)
		ON CONFLICT (gdrive_id, path) DO NOTHING`

	sqlInvalidateAll = `DELETE FROM gdrive_ids`

	sqlRename = `UPDATE OR REPLACE gdrive_ids SET path = ? WHERE gdrive_id = ?`

	sqlDelete = `DELETE FROM gdrive_ids WHERE gdrive_id = ?`

	sqlCount = `SELECT COUNT(*) FROM gdrive_ids`

	sqlEntries = `SELECT id, gdrive_id, path FROM gdrive_ids ORDER BY path, id`

	sqlRecordPermission = `INSERT OR IGNORE INTO permissions_added (gdrive_id) VALUES (?)`

	sqlHasPermission = `SELECT 1 FROM permissions_added WHERE gdrive_id = ? LIMIT 1`
)

// Store is the sole owner of the path cache database connection.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at dbPath and applies
// pending migrations, including the one-time widening of a legacy
// gdrive_ids unique constraint.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("pathcache: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("path cache opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the remote ID cached for path. Rows with an empty ID,
// which older databases hold after a failed root discovery, count as misses.
func (s *Store) Lookup(ctx context.Context, path string) (string, bool, error) {
	var id sql.NullString

	err := s.db.QueryRowContext(ctx, sqlLookup, NormalizePath(path)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("pathcache: looking up %q: %w", path, err)
	}

	if id.String == "" {
		return "", false, nil
	}

	return id.String, true, nil
}

// Save inserts entries in one transaction. Entries already present are
// left unchanged.
func (s *Store) Save(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pathcache: beginning save: %w", err)
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, sqlInsert, e.RemoteID, NormalizePath(e.Path)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("pathcache: saving %q: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pathcache: committing save: %w", err)
	}

	s.logger.Debug("path cache entries saved", slog.Int("count", len(entries)))

	return nil
}

// InvalidateAll deletes every cached path and returns how many rows went.
// Permission grants are kept.
func (s *Store) InvalidateAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, sqlInvalidateAll)
	if err != nil {
		return 0, fmt.Errorf("pathcache: invalidating: %w", err)
	}

	n, _ := res.RowsAffected()
	s.logger.Info("path cache invalidated", slog.Int64("rows", n))

	return n, nil
}

// Rename points the cached row for remoteID at newPath. Returns false
// without error when remoteID is not cached.
func (s *Store) Rename(ctx context.Context, remoteID, newPath string) (bool, error) {
	res, err := s.db.ExecContext(ctx, sqlRename, NormalizePath(newPath), remoteID)
	if err != nil {
		return false, fmt.Errorf("pathcache: renaming %s: %w", remoteID, err)
	}

	n, _ := res.RowsAffected()

	return n > 0, nil
}

// Delete removes cached rows for remoteID. Returns false when none existed.
func (s *Store) Delete(ctx context.Context, remoteID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, sqlDelete, remoteID)
	if err != nil {
		return false, fmt.Errorf("pathcache: deleting %s: %w", remoteID, err)
	}

	n, _ := res.RowsAffected()

	return n > 0, nil
}

// RecordPermissionGranted notes that the public link permission exists on
// remoteID. Recording the same ID twice is a no-op.
func (s *Store) RecordPermissionGranted(ctx context.Context, remoteID string) error {
	if _, err := s.db.ExecContext(ctx, sqlRecordPermission, remoteID); err != nil {
		return fmt.Errorf("pathcache: recording permission for %s: %w", remoteID, err)
	}

	return nil
}

// HasPermission reports whether a public link permission was recorded.
func (s *Store) HasPermission(ctx context.Context, remoteID string) (bool, error) {
	var one int

	err := s.db.QueryRowContext(ctx, sqlHasPermission, remoteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("pathcache: checking permission for %s: %w", remoteID, err)
	}

	return true, nil
}

// Count returns the number of cached paths.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, sqlCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("pathcache: counting: %w", err)
	}

	return n, nil
}

// Entries lists every cached path ordered by path.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlEntries)
	if err != nil {
		return nil, fmt.Errorf("pathcache: listing: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e        Entry
			remoteID sql.NullString
			path     sql.NullString
		)

		if err := rows.Scan(&e.ID, &remoteID, &path); err != nil {
			return nil, fmt.Errorf("pathcache: scanning row: %w", err)
		}

		e.RemoteID = remoteID.String
		e.Path = path.String
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pathcache: iterating rows: %w", err)
	}

	return out, nil
}
