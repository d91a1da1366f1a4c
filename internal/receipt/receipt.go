// Package receipt uploads receipt files for liquidation items on a bounded
// worker pool and tracks each upload by item key.
package receipt

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

const DefaultMaxFileSize = 5 << 20

var (
	ErrItemRequired    = errors.New("item id is required")
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedType = errors.New("unsupported file type, use png, jpg, jpeg, gif or pdf")
	ErrFileTooLarge    = fmt.Errorf("file exceeds %d MB", DefaultMaxFileSize>>20)
	ErrQueueFull       = errors.New("upload queue full, please try again later")
	ErrUploadNotFound  = errors.New("no upload for item")
	ErrShuttingDown    = errors.New("uploader is shutting down")
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
}

// ContentType maps an accepted filename to its MIME type.
func ContentType(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	ct, ok := contentTypes[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// Upload is the state of the latest upload one user made for one item.
type Upload struct {
	ItemID      string    `json:"item_id"`
	SubmittedBy string    `json:"submitted_by"`
	Filename    string    `json:"filename"`
	Status      Status    `json:"status"`
	URL         string    `json:"url,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
