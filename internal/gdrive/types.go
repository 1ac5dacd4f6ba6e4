package gdrive

import (
	"strconv"
	"time"
)

// FolderMimeType is the MIME type Drive uses for folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// File is the clean, consumer-facing view of a Drive file or folder.
// DownloadURL is short-lived and carries access rights; never log it.
type File struct {
	ID             string
	Title          string
	MimeType       string
	IsFolder       bool
	Size           int64
	MD5Checksum    string
	Parents        []string
	Trashed        bool
	ModifiedAt     time.Time
	DownloadURL    string
	WebContentLink string
}

// fileResponse mirrors the Drive v2 file resource. fileSize arrives as a
// decimal string (int64 in JSON string form).
type fileResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	MimeType       string `json:"mimeType"`
	FileSize       string `json:"fileSize"`
	MD5Checksum    string `json:"md5Checksum"`
	ModifiedDate   string `json:"modifiedDate"`
	DownloadURL    string `json:"downloadUrl"`
	WebContentLink string `json:"webContentLink"`
	Labels         struct {
		Trashed bool `json:"trashed"`
	} `json:"labels"`
	Parents []parentRef `json:"parents"`
}

type parentRef struct {
	ID string `json:"id"`
}

// fileListResponse is one page of files.list.
type fileListResponse struct {
	Items         []fileResponse `json:"items"`
	NextPageToken string         `json:"nextPageToken"`
}

func (r *fileResponse) toFile() File {
	f := File{
		ID:             r.ID,
		Title:          r.Title,
		MimeType:       r.MimeType,
		IsFolder:       r.MimeType == FolderMimeType,
		MD5Checksum:    r.MD5Checksum,
		Trashed:        r.Labels.Trashed,
		DownloadURL:    r.DownloadURL,
		WebContentLink: r.WebContentLink,
	}

	if r.FileSize != "" {
		if n, err := strconv.ParseInt(r.FileSize, 10, 64); err == nil {
			f.Size = n
		}
	}

	if r.ModifiedDate != "" {
		if t, err := time.Parse(time.RFC3339Nano, r.ModifiedDate); err == nil {
			f.ModifiedAt = t.UTC()
		}
	}

	for _, p := range r.Parents {
		f.Parents = append(f.Parents, p.ID)
	}

	return f
}
