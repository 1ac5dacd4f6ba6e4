package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API endpoints.
const (
	DefaultBaseURL   = "https://www.googleapis.com/drive/v2"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v2"
)

// Retry and backoff constants.
const (
	maxRetries       = 5
	baseBackoff      = 1 * time.Second
	maxBackoff       = 60 * time.Second
	backoffFactor    = 2.0
	jitterFraction   = 0.25
	defaultUserAgent = "gdrive-go/0.1"
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// per Go convention "accept interfaces, return structs"; *Session is the
// production implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Google Drive v2 API.
// It handles request construction, authentication, retry with
// exponential backoff, and error classification.
type Client struct {
	baseURL    string
	uploadURL  string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string

	// sleepFunc is called to wait between retries. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Drive API client. baseURL is typically DefaultBaseURL;
// the media upload endpoint is derived from it.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:    baseURL,
		uploadURL:  uploadURLFor(baseURL),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		sleepFunc:  timeSleep,
	}
}

// uploadURLFor derives the media upload base from the metadata base:
// ".../drive/v2" becomes ".../upload/drive/v2"; any other base gets "/upload".
func uploadURLFor(baseURL string) string {
	if baseURL == DefaultBaseURL {
		return DefaultUploadURL
	}

	if i := strings.Index(baseURL, "/drive/"); i >= 0 {
		return baseURL[:i] + "/upload" + baseURL[i:]
	}

	return baseURL + "/upload"
}

// request describes one API call. body must be rewindable so retries can
// resend it.
type request struct {
	method        string
	url           string
	body          io.ReadSeeker
	contentType   string
	contentLength int64
	header        http.Header
}

// do executes a request with retry. Non-2xx responses are converted to
// *APIError. The caller closes the response body on success.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	var attempt int

	for {
		resp, err := c.doOnce(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("gdrive: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", r.method),
					slog.String("path", redactURL(r.url)),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("gdrive: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("gdrive: %s %s failed after %d retries: %w", r.method, redactURL(r.url), maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", r.method),
				slog.String("path", redactURL(r.url)),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		apiErr := newAPIError(resp.StatusCode, errBody)

		if isRetryable(resp.StatusCode, apiErr.Reason) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", r.method),
				slog.String("path", redactURL(r.url)),
				slog.Int("status", resp.StatusCode),
				slog.String("reason", apiErr.Reason),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("gdrive: request canceled: %w", err)
			}

			attempt++

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", r.method),
				slog.String("path", redactURL(r.url)),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doOnce executes a single HTTP request (no retry), rewinding the body first.
func (c *Client) doOnce(ctx context.Context, r request) (*http.Response, error) {
	var body io.Reader

	if r.body != nil {
		if _, err := r.body.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}

		// NopCloser keeps the transport from closing a caller-owned file
		// between retries.
		body = io.NopCloser(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if r.contentLength > 0 {
		req.ContentLength = r.contentLength
	}

	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	return c.httpClient.Do(req)
}

// authorize sets the bearer token and user agent on req.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	tok, err := c.token.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	return nil
}

// apiURL joins the metadata base URL, path, and query parameters.
func (c *Client) apiURL(path string, params url.Values) string {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	return u
}

// doJSON sends in (if non-nil) as a JSON body and decodes the response into
// out (if non-nil). The response body is always drained and closed.
func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, in, out any) error {
	r := request{method: method, url: c.apiURL(path, params)}

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gdrive: marshaling %s %s request: %w", method, path, err)
		}

		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
		r.contentLength = int64(len(data))
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return fmt.Errorf("gdrive: draining %s %s response: %w", method, path, err)
		}

		return nil
	}

	if err := decodeJSON(resp.Body, out); err != nil {
		return fmt.Errorf("gdrive: decoding %s %s response: %w", method, path, err)
	}

	return nil
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// redactURL strips the query string, which can carry download tokens.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}

	return raw
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
