// Package library implements the book library operations on top of the
// Drive client and the path cache: tree copy, single-file upload, moves,
// renames, public links, and chunked downloads.
package library

import (
	"context"
	"io"
	"iter"
	"log/slog"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

// Drive is the subset of the Drive client the library needs.
// *gdrive.Client is the production implementation.
type Drive interface {
	ListFiles(ctx context.Context, q gdrive.Query) ([]gdrive.File, error)
	FindChild(ctx context.Context, parentID, title string, foldersOnly bool) (*gdrive.File, error)
	GetFile(ctx context.Context, fileID string) (*gdrive.File, error)
	CreateFolder(ctx context.Context, parentID, name string) (*gdrive.File, error)
	CreateFile(ctx context.Context, parentID, name, mimeType string) (*gdrive.File, error)
	UploadContent(ctx context.Context, fileID string, r io.ReadSeeker, size int64, mimeType string) (*gdrive.File, error)
	UpdateFile(ctx context.Context, fileID string, u gdrive.FileUpdate) (*gdrive.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	ListChildIDs(ctx context.Context, folderID string) ([]string, error)
	InsertPermission(ctx context.Context, fileID string, p gdrive.Permission) (*gdrive.Permission, error)
	Chunks(ctx context.Context, f *gdrive.File, chunkSize int64) iter.Seq2[[]byte, error]
}

// Refresher refreshes credentials before remote use. *gdrive.Session
// implements it.
type Refresher interface {
	RefreshIfExpired(ctx context.Context) bool
}

// Options configures a Service.
type Options struct {
	// LibraryDir is the local library directory mirrored by SyncFromLocal.
	LibraryDir string
	// ChunkSize is the range size for downloads; zero means the default.
	ChunkSize int64
	// Replace overwrites remote file content when a same-name file exists.
	Replace bool
	// Ignore holds gitignore-style patterns excluded from tree copies.
	Ignore []string
}

// Service runs library operations against one Drive account.
type Service struct {
	drive    Drive
	store    *pathcache.Store
	resolver *pathcache.Resolver
	session  Refresher
	opts     Options
	ignore   *ignore.GitIgnore
	logger   *slog.Logger
}

// New creates a Service. session may be nil when credentials never expire
// (tests).
func New(
	drive Drive,
	store *pathcache.Store,
	resolver *pathcache.Resolver,
	session Refresher,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = gdrive.DefaultChunkSize
	}

	return &Service{
		drive:    drive,
		store:    store,
		resolver: resolver,
		session:  session,
		opts:     opts,
		ignore:   ignore.CompileIgnoreLines(opts.Ignore...),
		logger:   logger,
	}
}

// refresh is the explicit credential check made before each remote
// operation.
func (s *Service) refresh(ctx context.Context) {
	if s.session != nil {
		s.session.RefreshIfExpired(ctx)
	}
}

// resolveDir returns the folder ID for a library-relative directory. An
// empty dir is the library root.
func (s *Service) resolveDir(ctx context.Context, dir string) (string, error) {
	if pathcache.NormalizePath(dir) == pathcache.RootPath {
		return s.resolver.ResolveRootID(ctx)
	}

	return s.resolver.ResolveFolderID(ctx, dir)
}

// ignored reports whether a path relative to the copy root is excluded.
func (s *Service) ignored(rel string) bool {
	return s.ignore.MatchesPath(rel)
}
