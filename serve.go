package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/library"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve library files over local HTTP",
		Long: `Serve GET /library/<path> by streaming the file from Drive in chunks. No
bytes are fetched until a client asks for them, and each chunk is flushed to
the client as it arrives.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "127.0.0.1:8086", "address to listen on")

	return cmd
}

// streamer is the library operation the HTTP handler needs.
type streamer interface {
	Stream(ctx context.Context, dir, name string) (*gdrive.File, iter.Seq2[[]byte, error], error)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	addr, _ := cmd.Flags().GetString("listen")

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newLibraryMux(ls.Library, cc.Logger),
		ReadHeaderTimeout: serverReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cc.Logger.Info("serving library", slog.String("addr", addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("library server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	cc.Statusf("Serving %s on http://%s/library/\n", cc.Cfg.DriveFolder, addr)

	return g.Wait()
}

func newLibraryMux(lib streamer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /library/{path...}", libraryHandler(lib, logger))

	return mux
}

// libraryHandler streams the file named by the {path} wildcard.
func libraryHandler(lib streamer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dir, name := library.SplitPath(r.PathValue("path"))
		if name == "" {
			http.Error(w, "file path required", http.StatusBadRequest)
			return
		}

		f, chunks, err := lib.Stream(r.Context(), dir, name)
		if err != nil {
			status := streamErrorStatus(err)
			if status == http.StatusBadGateway {
				logger.Error("stream setup failed",
					slog.String("path", r.PathValue("path")),
					slog.String("error", err.Error()),
				)
			}

			http.Error(w, http.StatusText(status), status)

			return
		}

		header := http.Header{}
		header.Set("Content-Type", contentTypeFor(f))
		header.Set("Content-Length", strconv.FormatInt(f.Size, 10))

		n, err := gdrive.ServeChunks(w, header, chunks)
		if err != nil {
			logger.Warn("stream ended early",
				slog.String("path", r.PathValue("path")),
				slog.Int64("bytes", n),
				slog.String("error", err.Error()),
			)

			return
		}

		logger.Debug("served file", slog.String("path", r.PathValue("path")), slog.Int64("bytes", n))
	})
}

func streamErrorStatus(err error) int {
	switch {
	case errors.Is(err, gdrive.ErrNotFound), errors.Is(err, pathcache.ErrFolderNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrIsFolder):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func contentTypeFor(f *gdrive.File) string {
	if f.MimeType != "" {
		return f.MimeType
	}

	if t := mime.TypeByExtension(path.Ext(f.Title)); t != "" {
		return t
	}

	return "application/octet-stream"
}
