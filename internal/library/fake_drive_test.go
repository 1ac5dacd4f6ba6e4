package library

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

// fakeDrive is an in-memory Drive. The account root is "root" and the
// library root folder "Calibre" has ID "lib".
type fakeDrive struct {
	mu      sync.Mutex
	nextID  int
	files   map[string]*gdrive.File
	content map[string][]byte
	perms   map[string]int
	lookups int
	uploads int
}

func newFakeDrive() *fakeDrive {
	d := &fakeDrive{
		files:   map[string]*gdrive.File{},
		content: map[string][]byte{},
		perms:   map[string]int{},
	}

	d.files["lib"] = &gdrive.File{ID: "lib", Title: "Calibre", IsFolder: true, MimeType: gdrive.FolderMimeType, Parents: []string{"root"}}

	return d
}

func (d *fakeDrive) add(parentID, title string, folder bool) *gdrive.File {
	d.nextID++

	f := &gdrive.File{
		ID:             fmt.Sprintf("id-%d", d.nextID),
		Title:          title,
		IsFolder:       folder,
		Parents:        []string{parentID},
		DownloadURL:    "https://download.invalid/" + title,
		WebContentLink: "https://drive.invalid/uc?id=" + title,
	}

	if folder {
		f.MimeType = gdrive.FolderMimeType
	}

	d.files[f.ID] = f

	return f
}

// child finds a live object by parent and title, for assertions.
func (d *fakeDrive) child(parentID, title string) *gdrive.File {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, f := range d.sorted() {
		if f.Title == title && slices.Contains(f.Parents, parentID) {
			return f
		}
	}

	return nil
}

func (d *fakeDrive) sorted() []*gdrive.File {
	out := make([]*gdrive.File, 0, len(d.files))
	for _, f := range d.files {
		out = append(out, f)
	}

	slices.SortFunc(out, func(a, b *gdrive.File) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return out
}

func (d *fakeDrive) ListFiles(_ context.Context, q gdrive.Query) ([]gdrive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lookups++

	var out []gdrive.File

	for _, f := range d.sorted() {
		if q.ParentID != "" && !slices.Contains(f.Parents, q.ParentID) {
			continue
		}

		if q.Title != "" && f.Title != q.Title {
			continue
		}

		if q.FoldersOnly && !f.IsFolder {
			continue
		}

		out = append(out, *f)
	}

	return out, nil
}

func (d *fakeDrive) FindChild(ctx context.Context, parentID, title string, foldersOnly bool) (*gdrive.File, error) {
	files, err := d.ListFiles(ctx, gdrive.Query{ParentID: parentID, Title: title, FoldersOnly: foldersOnly})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("fake: %q: %w", title, gdrive.ErrNotFound)
	}

	return &files[0], nil
}

func (d *fakeDrive) FolderID(ctx context.Context, parentID, name string) (string, bool, error) {
	f, err := d.FindChild(ctx, parentID, name, true)
	if err != nil {
		return "", false, nil //nolint:nilerr // not found
	}

	return f.ID, true, nil
}

func (d *fakeDrive) GetFile(_ context.Context, fileID string) (*gdrive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[fileID]
	if !ok {
		return nil, gdrive.ErrNotFound
	}

	c := *f

	return &c, nil
}

func (d *fakeDrive) CreateFolder(_ context.Context, parentID, name string) (*gdrive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := *d.add(parentID, name, true)

	return &c, nil
}

func (d *fakeDrive) CreateFile(_ context.Context, parentID, name, _ string) (*gdrive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := *d.add(parentID, name, false)

	return &c, nil
}

func (d *fakeDrive) UploadContent(_ context.Context, fileID string, r io.ReadSeeker, _ int64, _ string) (*gdrive.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[fileID]
	if !ok {
		return nil, gdrive.ErrNotFound
	}

	d.uploads++
	d.content[fileID] = data
	f.Size = int64(len(data))
	c := *f

	return &c, nil
}

func (d *fakeDrive) UpdateFile(_ context.Context, fileID string, u gdrive.FileUpdate) (*gdrive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[fileID]
	if !ok {
		return nil, gdrive.ErrNotFound
	}

	if u.Title != "" {
		f.Title = u.Title
	}

	f.Parents = slices.DeleteFunc(f.Parents, func(p string) bool { return slices.Contains(u.RemoveParents, p) })
	f.Parents = append(f.Parents, u.AddParents...)
	c := *f

	return &c, nil
}

func (d *fakeDrive) DeleteFile(_ context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[fileID]; !ok {
		return gdrive.ErrNotFound
	}

	delete(d.files, fileID)

	return nil
}

func (d *fakeDrive) ListChildIDs(_ context.Context, folderID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string

	for _, f := range d.sorted() {
		if slices.Contains(f.Parents, folderID) {
			ids = append(ids, f.ID)
		}
	}

	return ids, nil
}

func (d *fakeDrive) InsertPermission(_ context.Context, fileID string, p gdrive.Permission) (*gdrive.Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.perms[fileID]++

	return &p, nil
}

func (d *fakeDrive) Chunks(_ context.Context, f *gdrive.File, chunkSize int64) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		d.mu.Lock()
		data := d.content[f.ID]
		d.mu.Unlock()

		for _, r := range gdrive.SplitRanges(int64(len(data)), chunkSize) {
			if !yield(data[r.Start:r.End+1], nil) {
				return
			}
		}
	}
}

// countingRefresher records RefreshIfExpired calls.
type countingRefresher struct {
	calls int
}

func (c *countingRefresher) RefreshIfExpired(context.Context) bool {
	c.calls++
	return false
}

// testLogger returns a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

type testEnv struct {
	svc     *Service
	drive   *fakeDrive
	store   *pathcache.Store
	session *countingRefresher
	dir     string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	logger := testLogger(t)

	store, err := pathcache.Open(context.Background(), filepath.Join(t.TempDir(), "gdrive.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if opts.LibraryDir == "" {
		opts.LibraryDir = t.TempDir()
	}

	drive := newFakeDrive()
	session := &countingRefresher{}
	resolver := pathcache.NewResolver(store, drive, "Calibre", logger)

	return &testEnv{
		svc:     New(drive, store, resolver, session, opts, logger),
		drive:   drive,
		store:   store,
		session: session,
		dir:     opts.LibraryDir,
	}
}
