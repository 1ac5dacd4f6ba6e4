package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// webHookType is the only channel type Drive supports.
const webHookType = "web_hook"

// ChannelRequest describes a notification channel to open. ID must be unique
// per channel and defaults to a random UUID; Address must be an HTTPS URL
// Drive can reach.
type ChannelRequest struct {
	ID         string
	Address    string
	Token      string
	Expiration time.Time
}

// Channel is an open notification channel as acknowledged by Drive.
type Channel struct {
	ID          string
	ResourceID  string
	ResourceURI string
	Token       string
	Expiration  time.Time
}

// channelJSON is the wire form. Expiration is milliseconds since the epoch
// encoded as a JSON string.
type channelJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Address     string `json:"address,omitempty"`
	Token       string `json:"token,omitempty"`
	Expiration  int64  `json:"expiration,string,omitempty"`
	ResourceID  string `json:"resourceId,omitempty"`
	ResourceURI string `json:"resourceUri,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

func (r ChannelRequest) wire() channelJSON {
	cj := channelJSON{ID: r.ID, Type: webHookType, Address: r.Address, Token: r.Token}
	if cj.ID == "" {
		cj.ID = uuid.NewString()
	}

	if !r.Expiration.IsZero() {
		cj.Expiration = r.Expiration.UnixMilli()
	}

	return cj
}

func (cj *channelJSON) toChannel() *Channel {
	ch := &Channel{
		ID:          cj.ID,
		ResourceID:  cj.ResourceID,
		ResourceURI: cj.ResourceURI,
		Token:       cj.Token,
	}

	if cj.Expiration > 0 {
		ch.Expiration = time.UnixMilli(cj.Expiration).UTC()
	}

	return ch
}

// WatchChanges opens a channel that receives a notification for every change
// in the account.
func (c *Client) WatchChanges(ctx context.Context, req ChannelRequest) (*Channel, error) {
	var out channelJSON
	if err := c.doJSON(ctx, http.MethodPost, "/changes/watch", nil, req.wire(), &out); err != nil {
		return nil, fmt.Errorf("gdrive: watching changes: %w", err)
	}

	ch := out.toChannel()
	c.logger.Info("opened changes channel",
		slog.String("channel_id", ch.ID),
		slog.String("resource_id", ch.ResourceID),
		slog.Time("expiration", ch.Expiration),
	)

	return ch, nil
}

// WatchFile opens a channel scoped to a single file.
func (c *Client) WatchFile(ctx context.Context, fileID string, req ChannelRequest) (*Channel, error) {
	var out channelJSON
	if err := c.doJSON(ctx, http.MethodPost, "/files/"+url.PathEscape(fileID)+"/watch", nil, req.wire(), &out); err != nil {
		return nil, fmt.Errorf("gdrive: watching file %s: %w", fileID, err)
	}

	ch := out.toChannel()
	c.logger.Info("opened file channel",
		slog.String("file_id", fileID),
		slog.String("channel_id", ch.ID),
		slog.String("resource_id", ch.ResourceID),
	)

	return ch, nil
}

// StopChannel closes a channel. Both ids come from the Channel returned when
// it was opened.
func (c *Client) StopChannel(ctx context.Context, channelID, resourceID string) error {
	body := channelJSON{ID: channelID, ResourceID: resourceID}
	if err := c.doJSON(ctx, http.MethodPost, "/channels/stop", nil, body, nil); err != nil {
		return fmt.Errorf("gdrive: stopping channel %s: %w", channelID, err)
	}

	c.logger.Info("stopped channel", slog.String("channel_id", channelID))

	return nil
}

// Change is a single entry of the account change log.
type Change struct {
	ID         string
	FileID     string
	Deleted    bool
	ModifiedAt time.Time
	File       *File
}

type changeResponse struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId"`
	Deleted          bool          `json:"deleted"`
	ModificationDate string        `json:"modificationDate"`
	File             *fileResponse `json:"file"`
}

// GetChange fetches one change by id. Failures are logged and reported as
// not found.
func (c *Client) GetChange(ctx context.Context, changeID string) (*Change, bool) {
	var resp changeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/changes/"+url.PathEscape(changeID), nil, nil, &resp); err != nil {
		c.logger.Warn("getting change failed",
			slog.String("change_id", changeID),
			slog.String("error", err.Error()),
		)

		return nil, false
	}

	ch := &Change{ID: resp.ID, FileID: resp.FileID, Deleted: resp.Deleted}

	if t, err := time.Parse(time.RFC3339Nano, resp.ModificationDate); err == nil {
		ch.ModifiedAt = t.UTC()
	}

	if resp.File != nil {
		f := resp.File.toFile()
		ch.File = &f
	}

	return ch, true
}
