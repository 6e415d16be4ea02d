// Package files stores uploaded files on local disk or in a Backblaze B2 bucket.
package files

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Kinds of stored files. Each kind is a key prefix.
const (
	KindAssignments = "assignments"
	KindSubmissions = "submissions"
	KindAvatars     = "avatars"
)

var ErrInvalidPath = errors.New("invalid file path")

// maxExtLen bounds the extension kept from client filenames, dot included.
const maxExtLen = 10

// NewKey returns a unique key `<kind>/<uuid><ext>`, keeping the extension of filename
// when it is short and alphanumeric.
func NewKey(kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > maxExtLen || strings.IndexFunc(ext[1:], notAlnum) >= 0 {
		ext = ""
	}
	return path.Join(kind, uuid.New().String()+ext)
}

func notAlnum(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

// cleanKey rejects keys escaping the storage root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if cleaned == "" || cleaned != key {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// New returns the FileStorage selected by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	switch conf.Storage.Backend {
	case "b2":
		return NewB2Storage(ctx, conf.Storage.B2Account, conf.Storage.B2Key, conf.Storage.B2Bucket)
	case "", "local":
		dir := conf.Storage.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(conf.WorkDir, dir)
		}
		return NewLocalStorage(dir)
	}
	return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
}
