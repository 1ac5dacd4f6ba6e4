package main

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/library"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

type fakeStreamer struct {
	dir, name string
	file      *gdrive.File
	chunks    [][]byte
	err       error
	pulled    int
}

func (s *fakeStreamer) Stream(_ context.Context, dir, name string) (*gdrive.File, iter.Seq2[[]byte, error], error) {
	s.dir, s.name = dir, name

	if s.err != nil {
		return nil, nil, s.err
	}

	return s.file, func(yield func([]byte, error) bool) {
		for _, c := range s.chunks {
			s.pulled++

			if !yield(c, nil) {
				return
			}
		}
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLibraryHandler_StreamsFile(t *testing.T) {
	s := &fakeStreamer{
		file:   &gdrive.File{ID: "f1", Title: "book.epub", MimeType: "application/epub+zip", Size: 6},
		chunks: [][]byte{[]byte("abc"), []byte("def")},
	}

	srv := httptest.NewServer(newLibraryMux(s, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/library/Author/Title%20(1)/book.epub")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abcdef", string(body))
	assert.Equal(t, "application/epub+zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(6), resp.ContentLength)
	assert.Equal(t, "Author/Title (1)", s.dir)
	assert.Equal(t, "book.epub", s.name)
	assert.Equal(t, 2, s.pulled)
}

func TestLibraryHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		err    error
		status int
	}{
		{"missing file", "/library/a.pdf", gdrive.ErrNotFound, http.StatusNotFound},
		{"missing folder", "/library/Nobody/a.pdf", pathcache.ErrFolderNotFound, http.StatusNotFound},
		{"folder", "/library/Author", library.ErrIsFolder, http.StatusBadRequest},
		{"remote failure", "/library/a.pdf", errors.New("boom"), http.StatusBadGateway},
		{"no name", "/library/", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(newLibraryMux(&fakeStreamer{err: tt.err}, discardLogger()))
			defer srv.Close()

			resp, err := http.Get(srv.URL + tt.url)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestLibraryHandler_RejectsPost(t *testing.T) {
	srv := httptest.NewServer(newLibraryMux(&fakeStreamer{}, discardLogger()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/library/a.pdf", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor(&gdrive.File{Title: "a.pdf"}))
	assert.Equal(t, "image/png", contentTypeFor(&gdrive.File{Title: "a.bin", MimeType: "image/png"}))
	assert.Equal(t, "application/octet-stream", contentTypeFor(&gdrive.File{Title: "noext"}))
}
