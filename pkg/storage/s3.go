package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mitodl/edupipe/pkg/errors"
)

// s3FS writes objects into one S3 bucket via the upload manager.
type s3FS struct {
	uploader *manager.Uploader
	bucket   string
}

// NewS3FS returns a FileSystem writing into the given S3 bucket using
// the default AWS credential chain.
func NewS3FS(ctx context.Context, bucket string) (FileSystem, error) {
	if bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "S3 bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration").
			WithDetail("bucket", bucket)
	}

	client := s3.NewFromConfig(cfg)
	return &s3FS{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}, nil
}

// OpenWriter streams the written bytes to the object through a pipe.
// The upload completes when the writer is closed; Close reports the
// upload's error.
func (fs *s3FS) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()

	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := fs.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(path),
			Body:   pr,
		})
		if err != nil {
			pr.CloseWithError(err)
			w.done <- errors.Wrap(err, errors.ErrorTypeStorage, "S3 upload failed").
				WithDetail("bucket", fs.bucket).
				WithDetail("key", path)
			return
		}
		w.done <- nil
	}()

	return w, nil
}

func (fs *s3FS) Close() error {
	return nil
}

type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
