package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"

	"github.com/mitodl/edupipe/pkg/errors"
)

// gcsFS writes objects into one GCS bucket.
type gcsFS struct {
	client *gcs.Client
	bucket string
}

// NewGCSFS returns a FileSystem writing into the given GCS bucket using
// application default credentials.
func NewGCSFS(ctx context.Context, bucket string) (FileSystem, error) {
	if bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "GCS bucket is required")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client").
			WithDetail("bucket", bucket)
	}

	return &gcsFS{client: client, bucket: bucket}, nil
}

func (fs *gcsFS) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	obj := fs.client.Bucket(fs.bucket).Object(path)
	return obj.NewWriter(ctx), nil
}

func (fs *gcsFS) Close() error {
	return fs.client.Close()
}
