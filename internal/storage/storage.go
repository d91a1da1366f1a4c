// Package storage keeps uploaded receipt files in a bucket on an afero
// filesystem and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
)

type BlobStore struct {
	fs      afero.Fs
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewBlobStore serves objects for bucket out of fs. baseURL is the public
// prefix under which the bucket is exposed.
func NewBlobStore(fs afero.Fs, bucket, baseURL string, logger *slog.Logger) *BlobStore {
	return &BlobStore{
		fs:      fs,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// NewDiskBlobStore roots the bucket under dir on the local disk.
func NewDiskBlobStore(dir, bucket, baseURL string, logger *slog.Logger) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return NewBlobStore(afero.NewBasePathFs(afero.NewOsFs(), dir), bucket, baseURL, logger), nil
}

func (s *BlobStore) Bucket() string {
	return s.bucket
}

// NewObjectPath names a new object as <bucket>/<unix-nano>-<random>.<ext>,
// keeping the extension of the original filename.
func (s *BlobStore) NewObjectPath(filename string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	name := fmt.Sprintf("%d-%s", now.UnixNano(), randomSuffix(8))
	if ext != "" {
		name += "." + ext
	}
	return s.bucket + "/" + name
}

// Upload writes r to objectPath and returns its public URL.
func (s *BlobStore) Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	clean, err := s.clean(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	f, err := s.fs.Create(clean)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(clean)
		return "", fmt.Errorf("write object: %w", err)
	}

	s.logger.Debug("object stored", "path", clean, "bytes", n, "content_type", contentType)
	return s.PublicURL(clean), nil
}

// Open returns the stored object for reading.
func (s *BlobStore) Open(objectPath string) (afero.File, error) {
	clean, err := s.clean(objectPath)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(clean)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

func (s *BlobStore) PublicURL(objectPath string) string {
	return s.baseURL + "/" + strings.TrimPrefix(objectPath, "/")
}

// FileServer serves stored objects by their object path.
func (s *BlobStore) FileServer() http.Handler {
	return http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(s.fs)))
}

// clean roots objectPath and rejects paths that escape the bucket. Rooted
// paths match what the file server asks the filesystem for.
func (s *BlobStore) clean(objectPath string) (string, error) {
	p := path.Clean("/" + objectPath)
	if !strings.HasPrefix(p, "/"+s.bucket+"/") {
		return "", ErrInvalidPath
	}
	return p, nil
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
