package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Permission is a Drive v2 permission resource.
type Permission struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Value    string `json:"value,omitempty"`
	Role     string `json:"role"`
	WithLink bool   `json:"withLink,omitempty"`
}

// AnyoneWithLinkReader is the permission that makes a file readable by
// anyone holding its link.
func AnyoneWithLinkReader() Permission {
	return Permission{Type: "anyone", Role: "reader", WithLink: true}
}

// InsertPermission grants p on fileID.
func (c *Client) InsertPermission(ctx context.Context, fileID string, p Permission) (*Permission, error) {
	var out Permission
	if err := c.doJSON(ctx, http.MethodPost, "/files/"+url.PathEscape(fileID)+"/permissions", nil, p, &out); err != nil {
		return nil, fmt.Errorf("gdrive: granting %s/%s on %s: %w", p.Type, p.Role, fileID, err)
	}

	c.logger.Info("granted permission",
		slog.String("id", fileID),
		slog.String("type", p.Type),
		slog.String("role", p.Role),
	)

	return &out, nil
}
