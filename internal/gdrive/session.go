package gdrive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tonimelisma/gdrive-go/internal/tokenfile"
)

// ErrNotLoggedIn is returned when no saved credentials exist.
var ErrNotLoggedIn = errors.New("gdrive: not logged in")

// DefaultScopes grants full Drive access, needed to create folders and
// share files outside the app's own folder.
var DefaultScopes = []string{"https://www.googleapis.com/auth/drive"}

// expiryDelta treats tokens this close to expiry as already expired.
const expiryDelta = time.Minute

// LoadClientConfig reads an OAuth client settings file as downloaded from
// the Google Cloud console ("installed" or "web" application).
func LoadClientConfig(settingsPath string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("gdrive: reading client settings: %w", err)
	}

	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("gdrive: parsing client settings %s: %w", settingsPath, err)
	}

	return cfg, nil
}

// Session owns the account credentials for the lifetime of the process. It
// is built once at startup and handed to every component that talks to
// Drive. Refresh happens only when RefreshIfExpired is called, either
// explicitly or through Token.
type Session struct {
	cfg       *oauth2.Config
	credsPath string
	logger    *slog.Logger

	mu    sync.Mutex
	token *oauth2.Token

	nowFunc func() time.Time
}

// OpenSession loads client settings and saved credentials. Returns
// ErrNotLoggedIn when the credentials file does not exist.
func OpenSession(settingsPath, credsPath string, logger *slog.Logger) (*Session, error) {
	cfg, err := LoadClientConfig(settingsPath)
	if err != nil {
		return nil, err
	}

	creds, err := tokenfile.Load(credsPath)
	if err != nil {
		return nil, err
	}

	if creds == nil {
		return nil, ErrNotLoggedIn
	}

	return NewSession(cfg, creds, credsPath, logger), nil
}

// NewSession wraps already-loaded credentials.
func NewSession(cfg *oauth2.Config, creds *tokenfile.Credentials, credsPath string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	if creds.ClientID != "" && creds.ClientID != cfg.ClientID {
		logger.Warn("saved credentials were issued to a different client, refresh may fail",
			slog.String("path", credsPath),
		)
	}

	return &Session{
		cfg:       cfg,
		credsPath: credsPath,
		logger:    logger,
		token:     creds.Token,
		nowFunc:   time.Now,
	}
}

// Expired reports whether the access token is missing or about to expire.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.expiredLocked()
}

func (s *Session) expiredLocked() bool {
	if s.token == nil || s.token.AccessToken == "" {
		return true
	}

	if s.token.Expiry.IsZero() {
		return false
	}

	return !s.nowFunc().Add(expiryDelta).Before(s.token.Expiry)
}

// RefreshIfExpired refreshes the access token when it has expired and
// persists the result. Returns true only when a refresh happened. Failures
// are logged and otherwise ignored: the next remote call surfaces them as
// ErrUnauthorized.
func (s *Session) RefreshIfExpired(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.expiredLocked() {
		return false
	}

	if s.token == nil || s.token.RefreshToken == "" {
		s.logger.Warn("access token expired and no refresh token is saved")
		return false
	}

	s.logger.Info("refreshing access token", slog.Time("expiry", s.token.Expiry))

	// A token with only the refresh token set forces the exchange.
	src := s.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		s.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return false
	}

	if tok.RefreshToken == "" {
		tok.RefreshToken = s.token.RefreshToken
	}

	s.token = tok

	if err := tokenfile.Save(s.credsPath, &tokenfile.Credentials{Token: tok, ClientID: s.cfg.ClientID}); err != nil {
		s.logger.Warn("failed to persist refreshed token",
			slog.String("path", s.credsPath),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("access token refreshed", slog.Time("expiry", tok.Expiry))

	return true
}

// Token returns a current access token, refreshing first if needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.RefreshIfExpired(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil || s.token.AccessToken == "" {
		return "", ErrNotLoggedIn
	}

	return s.token.AccessToken, nil
}
