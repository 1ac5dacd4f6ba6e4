package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

// CopyOptions controls CopyTree.
type CopyOptions struct {
	// CreateRoot creates (or reuses) a remote folder named after localDir
	// and copies into it; otherwise localDir's entries go straight into the
	// parent.
	CreateRoot bool
	// Replace overwrites the content of same-name remote files. Without it
	// existing files are skipped.
	Replace bool
}

// CopyStats counts what a tree copy did.
type CopyStats struct {
	FoldersCreated int
	FilesCreated   int
	FilesUpdated   int
	FilesSkipped   int
	Ignored        int
}

// CopyTree mirrors localDir into the remote folder parentID (empty means the
// library root). Remote entries are matched by exact title under their
// parent; the path cache is neither read nor written. Entries matching the
// ignore patterns are skipped at any depth.
func (s *Service) CopyTree(ctx context.Context, localDir, parentID string, opts CopyOptions) (CopyStats, error) {
	var stats CopyStats

	s.refresh(ctx)

	if parentID == "" {
		rootID, err := s.resolver.ResolveRootID(ctx)
		if err != nil {
			return stats, err
		}

		parentID = rootID
	}

	info, err := os.Stat(localDir)
	if err != nil {
		return stats, fmt.Errorf("library: reading %s: %w", localDir, err)
	}

	name := filepath.Base(localDir)

	if !info.IsDir() {
		if s.ignored(name) {
			stats.Ignored++
			return stats, nil
		}

		err := s.copyFile(ctx, parentID, localDir, name, opts.Replace, &stats)

		return stats, err
	}

	target := parentID

	if opts.CreateRoot {
		folder, created, err := s.findOrCreateFolder(ctx, parentID, name)
		if err != nil {
			return stats, err
		}

		if created {
			stats.FoldersCreated++
		}

		target = folder.ID
	}

	s.logger.Info("copying tree",
		slog.String("local_dir", localDir),
		slog.String("parent_id", target),
		slog.Bool("replace", opts.Replace),
	)

	if err := s.copyDir(ctx, localDir, "", target, opts.Replace, &stats); err != nil {
		return stats, err
	}

	s.logger.Info("tree copy complete",
		slog.String("local_dir", localDir),
		slog.Int("folders_created", stats.FoldersCreated),
		slog.Int("files_created", stats.FilesCreated),
		slog.Int("files_updated", stats.FilesUpdated),
		slog.Int("files_skipped", stats.FilesSkipped),
	)

	return stats, nil
}

// CopyInto copies localPath below the library folder dir, creating dir when
// missing. Same-name remote files are overwritten only when the service was
// configured with Replace.
func (s *Service) CopyInto(ctx context.Context, localPath, dir string, createRoot bool) (CopyStats, error) {
	var parentID string

	if pathcache.NormalizePath(dir) != pathcache.RootPath {
		id, err := s.EnsureFolder(ctx, dir)
		if err != nil {
			return CopyStats{}, err
		}

		parentID = id
	}

	return s.CopyTree(ctx, localPath, parentID, CopyOptions{CreateRoot: createRoot, Replace: s.opts.Replace})
}

// copyDir copies the entries of dir into parentID. rel is dir's path
// relative to the copy root, used for ignore matching.
func (s *Service) copyDir(ctx context.Context, dir, rel, parentID string, replace bool, stats *CopyStats) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("library: listing %s: %w", dir, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("library: copy canceled: %w", err)
		}

		entryRel := path.Join(rel, e.Name())
		if s.ignored(entryRel) {
			s.logger.Debug("ignoring entry", slog.String("path", entryRel))
			stats.Ignored++

			continue
		}

		localPath := filepath.Join(dir, e.Name())

		if !e.IsDir() {
			if err := s.copyFile(ctx, parentID, localPath, e.Name(), replace, stats); err != nil {
				return err
			}

			continue
		}

		folder, created, err := s.findOrCreateFolder(ctx, parentID, e.Name())
		if err != nil {
			return err
		}

		if created {
			stats.FoldersCreated++
		}

		if err := s.copyDir(ctx, localPath, entryRel, folder.ID, replace, stats); err != nil {
			return err
		}
	}

	return nil
}

// findOrCreateFolder returns the folder titled name under parentID,
// creating it when missing.
func (s *Service) findOrCreateFolder(ctx context.Context, parentID, name string) (*gdrive.File, bool, error) {
	existing, err := s.drive.FindChild(ctx, parentID, name, true)
	if err == nil {
		return existing, false, nil
	}

	if !errors.Is(err, gdrive.ErrNotFound) {
		return nil, false, err
	}

	folder, err := s.drive.CreateFolder(ctx, parentID, name)
	if err != nil {
		return nil, false, err
	}

	return folder, true, nil
}

// copyFile creates or updates the remote file titled name under parentID
// from localPath.
func (s *Service) copyFile(ctx context.Context, parentID, localPath, name string, replace bool, stats *CopyStats) error {
	existing, err := s.drive.FindChild(ctx, parentID, name, false)

	switch {
	case err == nil && !replace:
		s.logger.Debug("remote file exists, skipping", slog.String("name", name))
		stats.FilesSkipped++

		return nil
	case err == nil:
		if _, err := s.upload(ctx, existing.ID, localPath); err != nil {
			return err
		}

		stats.FilesUpdated++

		return nil
	case !errors.Is(err, gdrive.ErrNotFound):
		return err
	}

	if _, err := s.createAndUpload(ctx, parentID, name, localPath); err != nil {
		return err
	}

	stats.FilesCreated++

	return nil
}

func (s *Service) createAndUpload(ctx context.Context, parentID, name, localPath string) (*gdrive.File, error) {
	f, err := s.drive.CreateFile(ctx, parentID, name, mimeTypeFor(name))
	if err != nil {
		return nil, err
	}

	return s.upload(ctx, f.ID, localPath)
}

// upload sends localPath as the content of fileID.
func (s *Service) upload(ctx context.Context, fileID, localPath string) (*gdrive.File, error) {
	fh, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("library: opening %s: %w", localPath, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("library: stat %s: %w", localPath, err)
	}

	return s.drive.UploadContent(ctx, fileID, fh, info.Size(), mimeTypeFor(localPath))
}

// mimeTypeFor guesses a MIME type from the file extension.
func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}

	return "application/octet-stream"
}
