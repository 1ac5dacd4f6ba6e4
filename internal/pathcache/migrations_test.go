package pathcache

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// legacySchema is the gdrive_ids layout written by earlier releases, with
// uniqueness on gdrive_id alone.
const legacySchema = `CREATE TABLE gdrive_ids (
	id INTEGER NOT NULL,
	gdrive_id INTEGER,
	path VARCHAR,
	PRIMARY KEY (id),
	UNIQUE (gdrive_id)
)`

func createLegacyDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gdrive.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	defer db.Close()

	_, err = db.Exec(legacySchema)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO gdrive_ids (id, gdrive_id, path) VALUES (1, 'root-id', '/'), (2, 'books-id', 'Books/')`)
	require.NoError(t, err)

	return path
}

func tableSQL(t *testing.T, db *sql.DB) string {
	t.Helper()

	var ddl string
	require.NoError(t, db.QueryRow(`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'gdrive_ids'`).Scan(&ddl))

	return ddl
}

func TestOpen_WidensLegacyConstraint(t *testing.T) {
	ctx := context.Background()
	path := createLegacyDB(t)

	s, err := Open(ctx, path, testLogger(t))
	require.NoError(t, err)

	defer s.Close()

	ddl := tableSQL(t, s.db)
	assert.Contains(t, ddl, "UNIQUE (gdrive_id, path)")
	assert.NotContains(t, ddl, "gdrive_ids2")

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/", entries[0].Path)
	assert.Equal(t, int64(1), entries[0].ID)

	// The same folder can now be cached under a second path.
	require.NoError(t, s.Save(ctx, []Entry{{RemoteID: "books-id", Path: "Alias/"}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	granted, err := s.HasPermission(ctx, "x")
	require.NoError(t, err)
	assert.False(t, granted, "permissions table created alongside legacy data")
}

func TestWidenPathConstraint_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := createLegacyDB(t)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	defer db.Close()

	changed, err := WidenPathConstraint(ctx, db)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = WidenPathConstraint(ctx, db)
	require.NoError(t, err)
	assert.False(t, changed)

	var tables int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'gdrive_ids%'`).Scan(&tables))
	assert.Equal(t, 1, tables)
	assert.Equal(t, 1, strings.Count(tableSQL(t, db), "UNIQUE"))
}

func TestWidenPathConstraint_FreshSchemaUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	before := tableSQL(t, s.db)

	changed, err := WidenPathConstraint(ctx, s.db)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, tableSQL(t, s.db))
}

func TestWidenPathConstraint_NoTable(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)

	defer db.Close()

	changed, err := WidenPathConstraint(context.Background(), db)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestOpen_LegacyDBTwice(t *testing.T) {
	ctx := context.Background()
	path := createLegacyDB(t)

	for range 2 {
		s, err := Open(ctx, path, testLogger(t))
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}
