package gdrive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// UploadContent replaces the content of an existing file with a simple media
// upload. r must be seekable so a retried request can resend it from the
// start.
func (c *Client) UploadContent(ctx context.Context, fileID string, r io.ReadSeeker, size int64, mimeType string) (*File, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	u := c.uploadURL + "/files/" + url.PathEscape(fileID) + "?" + url.Values{"uploadType": {"media"}}.Encode()

	resp, err := c.do(ctx, request{
		method:        http.MethodPut,
		url:           u,
		body:          r,
		contentType:   mimeType,
		contentLength: size,
	})
	if err != nil {
		return nil, fmt.Errorf("gdrive: uploading content for %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	var fr fileResponse
	if err := decodeJSON(resp.Body, &fr); err != nil {
		return nil, fmt.Errorf("gdrive: decoding upload response for %s: %w", fileID, err)
	}

	f := fr.toFile()

	c.logger.Info("uploaded content",
		slog.String("id", fileID),
		slog.Int64("size", size),
	)

	return &f, nil
}
