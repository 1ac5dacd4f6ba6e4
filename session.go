package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tonimelisma/gdrive-go/internal/config"
	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/library"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

// LibrarySession holds everything a remote command works with: the
// refreshed credentials, the Drive client, the path cache, and the library
// service built on them.
type LibrarySession struct {
	Session  *gdrive.Session
	Client   *gdrive.Client
	Store    *pathcache.Store
	Resolver *pathcache.Resolver
	Library  *library.Service
}

// Close releases the path cache database.
func (ls *LibrarySession) Close() error {
	return ls.Store.Close()
}

// errNotReady is returned when the settings or credentials file is missing.
var errNotReady = errors.New("not logged in, run 'gdrive-go login' first")

// openLibrary wires a LibrarySession from the resolved config. Remote
// features are only offered once both auth files exist.
func openLibrary(ctx context.Context, cc *CLIContext) (*LibrarySession, error) {
	cfg := cc.Cfg

	if !config.Ready(cfg) {
		return nil, errNotReady
	}

	session, err := gdrive.OpenSession(cfg.SettingsFile, cfg.CredentialsFile, cc.Logger)
	if err != nil {
		if errors.Is(err, gdrive.ErrNotLoggedIn) {
			return nil, errNotReady
		}

		return nil, err
	}

	client := gdrive.NewClient(gdrive.DefaultBaseURL, newHTTPClient(cfg), session, cc.Logger, cfg.UserAgent)

	store, err := pathcache.Open(ctx, cfg.DBPath, cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening path cache: %w", err)
	}

	resolver := pathcache.NewResolver(store, client, cfg.DriveFolder, cc.Logger)

	lib := library.New(client, store, resolver, session, library.Options{
		LibraryDir: cfg.LibraryDir,
		ChunkSize:  cfg.ChunkSize,
		Replace:    cfg.ReplaceFiles,
		Ignore:     cfg.Ignore,
	}, cc.Logger)

	return &LibrarySession{
		Session:  session,
		Client:   client,
		Store:    store,
		Resolver: resolver,
		Library:  lib,
	}, nil
}

// newHTTPClient bounds connection setup by connect_timeout and the wait for
// response headers by data_timeout. There is no overall timeout because
// uploads and streamed downloads can run for a long time.
func newHTTPClient(cfg *config.Resolved) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	transport.ResponseHeaderTimeout = cfg.DataTimeout

	return &http.Client{Transport: transport}
}
