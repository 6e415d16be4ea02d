package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files (assignment materials, submissions, avatars).
// Save returns the path under which the file can later be opened.
type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
