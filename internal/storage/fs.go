package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// FSStorage keeps blobs as files under a root directory of an afero filesystem.
type FSStorage struct {
	fs afero.Fs
}

// NewFSStorage roots the store at dir on the given filesystem, creating it if needed.
func NewFSStorage(base afero.Fs, dir string) (*FSStorage, error) {
	if err := base.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob root %s: %w", dir, err)
	}
	return &FSStorage{fs: afero.NewBasePathFs(base, dir)}, nil
}

// NewLocalStorage is NewFSStorage on the OS filesystem.
func NewLocalStorage(dir string) (*FSStorage, error) {
	return NewFSStorage(afero.NewOsFs(), dir)
}

func (s *FSStorage) file(key string) string {
	return filepath.FromSlash(path.Clean("/" + key))
}

// Put writes r to key. The file is written to a temporary name first and renamed,
// so a reader never observes a partially written image.
func (s *FSStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := s.file(key)
	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	tmp := name + ".part"
	if err := afero.WriteReader(s.fs, tmp, r); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Open returns the stored file with its sniffed content type.
func (s *FSStorage) Open(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(s.file(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, ErrObjectNotFound
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("detect %s: %w", key, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("rewind %s: %w", key, err)
	}
	return &Object{Body: f, Size: st.Size(), ContentType: mt.String()}, nil
}

// Delete removes key, returning ErrObjectNotFound when it does not exist.
func (s *FSStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(s.file(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
