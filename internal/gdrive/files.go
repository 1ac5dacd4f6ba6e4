package gdrive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// listPageSize is the maxResults value for files.list.
const listPageSize = 1000

// ListFiles returns every object matching q, following pagination.
func (c *Client) ListFiles(ctx context.Context, q Query) ([]File, error) {
	params := url.Values{}
	params.Set("q", q.String())
	params.Set("maxResults", fmt.Sprint(listPageSize))

	var all []File

	for {
		var page fileListResponse
		if err := c.doJSON(ctx, http.MethodGet, "/files", params, nil, &page); err != nil {
			return nil, fmt.Errorf("gdrive: listing files: %w", err)
		}

		for i := range page.Items {
			all = append(all, page.Items[i].toFile())
		}

		if page.NextPageToken == "" {
			break
		}

		params.Set("pageToken", page.NextPageToken)
	}

	c.logger.Debug("listed files",
		slog.String("parent_id", q.ParentID),
		slog.Int("count", len(all)),
	)

	return all, nil
}

// FindChild returns the first non-trashed child of parentID titled title.
// Returns ErrNotFound when nothing matches.
func (c *Client) FindChild(ctx context.Context, parentID, title string, foldersOnly bool) (*File, error) {
	files, err := c.ListFiles(ctx, Query{ParentID: parentID, Title: title, FoldersOnly: foldersOnly})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("gdrive: %q under %s: %w", title, parentID, ErrNotFound)
	}

	return &files[0], nil
}

// FindFolder returns the first folder titled name under parentID.
func (c *Client) FindFolder(ctx context.Context, parentID, name string) (*File, error) {
	return c.FindChild(ctx, parentID, name, true)
}

// FolderID looks up a folder by name under parentID. The bool is false when
// no such folder exists; err is reserved for remote failures.
func (c *Client) FolderID(ctx context.Context, parentID, name string) (string, bool, error) {
	f, err := c.FindFolder(ctx, parentID, name)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return f.ID, true, nil
}

// GetFile fetches metadata for a single object.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var resp fileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("gdrive: getting file %s: %w", fileID, err)
	}

	f := resp.toFile()

	return &f, nil
}

// createRequest is the files.insert metadata body.
type createRequest struct {
	Title    string      `json:"title"`
	MimeType string      `json:"mimeType,omitempty"`
	Parents  []parentRef `json:"parents,omitempty"`
}

// CreateFolder creates a folder titled name under parentID.
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (*File, error) {
	f, err := c.insert(ctx, createRequest{
		Title:    name,
		MimeType: FolderMimeType,
		Parents:  []parentRef{{ID: parentID}},
	})
	if err != nil {
		return nil, fmt.Errorf("gdrive: creating folder %q: %w", name, err)
	}

	c.logger.Info("created folder",
		slog.String("name", name),
		slog.String("id", f.ID),
		slog.String("parent_id", parentID),
	)

	return f, nil
}

// CreateFile creates an empty file titled name under parentID. Content is
// sent separately with UploadContent.
func (c *Client) CreateFile(ctx context.Context, parentID, name, mimeType string) (*File, error) {
	f, err := c.insert(ctx, createRequest{
		Title:    name,
		MimeType: mimeType,
		Parents:  []parentRef{{ID: parentID}},
	})
	if err != nil {
		return nil, fmt.Errorf("gdrive: creating file %q: %w", name, err)
	}

	return f, nil
}

func (c *Client) insert(ctx context.Context, body createRequest) (*File, error) {
	var resp fileResponse
	if err := c.doJSON(ctx, http.MethodPost, "/files", nil, body, &resp); err != nil {
		return nil, err
	}

	f := resp.toFile()

	return &f, nil
}

// FileUpdate lists the metadata changes for UpdateFile. Empty fields are
// left untouched.
type FileUpdate struct {
	Title         string
	AddParents    []string
	RemoveParents []string
}

type updateRequest struct {
	Title string `json:"title,omitempty"`
}

// UpdateFile patches metadata: title and parent membership.
func (c *Client) UpdateFile(ctx context.Context, fileID string, u FileUpdate) (*File, error) {
	params := url.Values{}
	if len(u.AddParents) > 0 {
		params.Set("addParents", strings.Join(u.AddParents, ","))
	}

	if len(u.RemoveParents) > 0 {
		params.Set("removeParents", strings.Join(u.RemoveParents, ","))
	}

	var resp fileResponse
	if err := c.doJSON(ctx, http.MethodPatch, "/files/"+url.PathEscape(fileID), params,
		updateRequest{Title: u.Title}, &resp); err != nil {
		return nil, fmt.Errorf("gdrive: updating file %s: %w", fileID, err)
	}

	f := resp.toFile()

	return &f, nil
}

// DeleteFile permanently deletes an object (bypassing the trash).
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil, nil, nil); err != nil {
		return fmt.Errorf("gdrive: deleting file %s: %w", fileID, err)
	}

	c.logger.Info("deleted file", slog.String("id", fileID))

	return nil
}

type childListResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// ListChildIDs returns the IDs of every child of folderID, trashed
// children included.
func (c *Client) ListChildIDs(ctx context.Context, folderID string) ([]string, error) {
	params := url.Values{}
	params.Set("maxResults", fmt.Sprint(listPageSize))

	var ids []string

	for {
		var page childListResponse
		if err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(folderID)+"/children", params, nil, &page); err != nil {
			return nil, fmt.Errorf("gdrive: listing children of %s: %w", folderID, err)
		}

		for _, item := range page.Items {
			ids = append(ids, item.ID)
		}

		if page.NextPageToken == "" {
			return ids, nil
		}

		params.Set("pageToken", page.NextPageToken)
	}
}
