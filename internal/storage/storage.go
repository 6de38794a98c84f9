package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Open and Delete when the key has no object.
var ErrObjectNotFound = errors.New("blob not found")

// Object is an open blob. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Store is the blob store used for post images. Keys are slash separated and
// relative to the store root (e.g. "posts/<uuid>.png").
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh collision-free key under prefix. ext may be given with or
// without its leading dot.
func NewKey(prefix, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return path.Join(prefix, name)
}

// CleanKey normalises a key taken from a URL and rejects traversal outside the root.
func CleanKey(key string) (string, bool) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", false
	}
	return k, true
}
