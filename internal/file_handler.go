package internal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotFound = errors.New("file not found")
)

// ServedFile is an opened file ready to be streamed. The owner must call
// Close on every exit path; Close releases the body exactly once.
type ServedFile struct {
	ContentType  string
	Size         int64
	LastModified time.Time // zero when unknown
	Body         io.Reader

	closer io.Closer
	once   sync.Once
	err    error
}

// NewServedFile wraps body as a ServedFile. closer may be nil.
func NewServedFile(contentType string, size int64, lastModified time.Time, body io.Reader, closer io.Closer) *ServedFile {
	return &ServedFile{
		ContentType:  contentType,
		Size:         size,
		LastModified: lastModified,
		Body:         body,
		closer:       closer,
	}
}

func (f *ServedFile) Read(p []byte) (int, error) {
	return f.Body.Read(p)
}

// Close releases the underlying handle. Calls after the first are no-ops
// and return the first result.
func (f *ServedFile) Close() error {
	f.once.Do(func() {
		if f.closer != nil {
			f.err = f.closer.Close()
		}
	})
	return f.err
}

func (f *ServedFile) String() string {
	return fmt.Sprintf("served file :: content-type: %s, size: %d, modified_at: %v", f.ContentType, f.Size, f.LastModified)
}

// Open opens name for streaming. Missing files and directories yield
// ErrNotFound; other failures are returned joined with it.
func Open(name string) (*ServedFile, error) {
	fi, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrNotFound, err)
	}
	if fi.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Join(ErrNotFound, err)
	}

	return NewServedFile(contentType(name), fi.Size(), fi.ModTime(), f, f), nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	mt, err := mimetype.DetectFile(name)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}
