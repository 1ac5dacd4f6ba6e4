package gdrive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/gdrive-go/internal/tokenfile"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// Login performs the installed-app authorization code + PKCE flow against a
// loopback redirect:
//  1. Binds 127.0.0.1 on a random port
//  2. Calls openURL with the consent URL
//  3. Receives the code on the callback
//  4. Exchanges it and saves the credentials to credsPath
//
// If openURL fails, the URL is printed to stderr instead.
func Login(
	ctx context.Context,
	cfg *oauth2.Config,
	credsPath string,
	openURL func(string) error,
	logger *slog.Logger,
) (*Session, error) {
	logger.Info("starting browser auth flow", slog.String("path", credsPath))

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, logger)

	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("gdrive: generating state token: %w", err)
	}

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, resultCh)
	})

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL", slog.String("error", openErr.Error()))
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("gdrive: token exchange failed: %w", err)
	}

	creds := &tokenfile.Credentials{Token: tok, ClientID: cfg.ClientID}
	if err := tokenfile.Save(credsPath, creds); err != nil {
		return nil, fmt.Errorf("gdrive: saving credentials: %w", err)
	}

	logger.Info("login successful",
		slog.String("path", credsPath),
		slog.Time("expiry", tok.Expiry),
	)

	return NewSession(cfg, creds, credsPath, logger), nil
}

// startCallbackServer binds to 127.0.0.1:0 and serves mux. Returns the
// server and its port.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("gdrive: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("gdrive: listener address is not TCP")
	}

	logger.Debug("callback server listening", slog.Int("port", tcpAddr.Port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("gdrive: callback server error: %w", serveErr)}:
			default:
			}
		}
	}()

	return srv, tcpAddr.Port, nil
}

// handleOAuthCallback validates the state, extracts the code, and sends the
// result. Only the first result is delivered.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	send := func(res callbackResult) {
		select {
		case resultCh <- res:
		default:
		}
	}

	q := r.URL.Query()

	if q.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("gdrive: OAuth2 state mismatch")})

		return
	}

	if errParam := q.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("gdrive: authorization failed: %s", errParam)})

		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("gdrive: callback missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	send(callbackResult{code: code})
}

func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("gdrive: browser auth canceled: %w", ctx.Err())
	}
}

// generateState produces a random hex string for the OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// Logout removes the saved credentials. A missing file is not an error.
func Logout(credsPath string, logger *slog.Logger) error {
	removed, err := tokenfile.Remove(credsPath)
	if err != nil {
		return err
	}

	if !removed {
		logger.Info("logout: no credentials to remove", slog.String("path", credsPath))
		return nil
	}

	logger.Info("logout: removed credentials", slog.String("path", credsPath))

	return nil
}
