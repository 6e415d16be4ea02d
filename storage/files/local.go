package files

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// LocalStorage keeps files under a directory on disk.
type LocalStorage struct {
	dir string
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) fullPath(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	fp, err := s.fullPath(key)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return key, nil
}

func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fp, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFoundError("file")
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

// Delete removes the file. Deleting a missing file is not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	fp, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
