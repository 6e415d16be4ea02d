package files

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// B2Storage keeps files in a Backblaze B2 bucket. Paths are the object names.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

var _ core.FileStorage = (*B2Storage)(nil)

func NewB2Storage(ctx context.Context, accountID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &B2Storage{client: client, bucket: bucket}, nil
}

func (s *B2Storage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	if _, err = io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err = w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return key, nil
}

func (s *B2Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	obj := s.bucket.Object(key)
	if _, err = obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, core.NewNotFoundError("file")
		}
		return nil, errors.Wrap(err, "reading object attributes")
	}
	return obj.NewReader(ctx), nil
}

func (s *B2Storage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err = s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}

// URL is the public download URL of the object, for public buckets.
func (s *B2Storage) URL(key string) string {
	return s.bucket.Object(key).URL()
}
