package pathcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrFolderNotFound is returned when a path cannot be resolved to a folder.
var ErrFolderNotFound = errors.New("pathcache: folder not found")

// accountRootID is the Drive alias for the account's top-level folder.
const accountRootID = "root"

// FolderLocator finds a folder by name under a parent. found is false when
// no such folder exists; err is reserved for remote failures.
// *gdrive.Client satisfies it.
type FolderLocator interface {
	FolderID(ctx context.Context, parentID, name string) (id string, found bool, err error)
}

// Resolver turns library folder paths into Drive folder IDs, consulting the
// cache first and the locator for prefixes not yet cached.
type Resolver struct {
	store    *Store
	locator  FolderLocator
	rootName string
	logger   *slog.Logger
}

// NewResolver creates a Resolver whose library root is the folder rootName
// directly under the account root.
func NewResolver(store *Store, locator FolderLocator, rootName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{store: store, locator: locator, rootName: rootName, logger: logger}
}

// RootName is the title of the library root folder.
func (r *Resolver) RootName() string {
	return r.rootName
}

// ResolveRootID returns the ID of the library root folder, cached under
// RootPath. Remote failures are logged and reported as ErrFolderNotFound.
func (r *Resolver) ResolveRootID(ctx context.Context) (string, error) {
	var pending []Entry

	id, err := r.rootID(ctx, &pending)
	if saveErr := r.store.Save(ctx, pending); saveErr != nil && err == nil {
		err = saveErr
	}

	return id, err
}

func (r *Resolver) rootID(ctx context.Context, pending *[]Entry) (string, error) {
	id, ok, err := r.store.Lookup(ctx, RootPath)
	if err != nil {
		return "", err
	}

	if ok {
		return id, nil
	}

	id, found, err := r.locator.FolderID(ctx, accountRootID, r.rootName)
	if err != nil {
		r.logger.Error("library root lookup failed",
			slog.String("folder", r.rootName),
			slog.String("error", err.Error()),
		)

		return "", fmt.Errorf("%w: library root %q", ErrFolderNotFound, r.rootName)
	}

	if !found {
		r.logger.Error("library root not found", slog.String("folder", r.rootName))

		return "", fmt.Errorf("%w: library root %q", ErrFolderNotFound, r.rootName)
	}

	*pending = append(*pending, Entry{RemoteID: id, Path: RootPath})

	return id, nil
}

// ResolveFolderID returns the Drive ID of the folder at path, relative to
// the library root. An exact cache hit makes no remote calls. On a miss the
// path is walked from the root one segment at a time; every prefix found
// remotely is saved in one batch, even when the walk fails partway. A
// segment that does not exist yields ErrFolderNotFound.
func (r *Resolver) ResolveFolderID(ctx context.Context, path string) (string, error) {
	key := NormalizePath(path)

	if id, ok, err := r.store.Lookup(ctx, key); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	var pending []Entry

	id, walkErr := r.walk(ctx, key, &pending)

	if err := r.store.Save(ctx, pending); err != nil {
		if walkErr != nil {
			r.logger.Warn("saving partial path walk failed",
				slog.String("path", key),
				slog.String("error", err.Error()),
			)

			return "", walkErr
		}

		return "", err
	}

	if walkErr != nil {
		return "", walkErr
	}

	r.logger.Debug("resolved folder",
		slog.String("path", key),
		slog.Int("discovered", len(pending)),
	)

	return id, nil
}

func (r *Resolver) walk(ctx context.Context, key string, pending *[]Entry) (string, error) {
	parentID, err := r.rootID(ctx, pending)
	if err != nil {
		return "", err
	}

	prefix := ""

	for _, seg := range Segments(key) {
		prefix += seg + "/"

		id, ok, err := r.store.Lookup(ctx, prefix)
		if err != nil {
			return "", err
		}

		if ok {
			parentID = id
			continue
		}

		id, found, err := r.locator.FolderID(ctx, parentID, seg)
		if err != nil {
			return "", fmt.Errorf("pathcache: locating %q: %w", prefix, err)
		}

		if !found {
			r.logger.Debug("folder not found remotely", slog.String("path", prefix))

			return "", fmt.Errorf("%w: %q", ErrFolderNotFound, prefix)
		}

		*pending = append(*pending, Entry{RemoteID: id, Path: prefix})
		parentID = id
	}

	return parentID, nil
}
