// Package storage abstracts the output destinations extraction writes
// to. A destination is named by URI: a bare path or file:// URI maps to
// the local filesystem, gs:// to Google Cloud Storage, s3:// to Amazon
// S3. Writers are whole-file: each OpenWriter produces a new object,
// replacing any previous content at that path.
package storage

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/mitodl/edupipe/pkg/errors"
)

// FileSystem writes whole files under some backend-specific namespace.
type FileSystem interface {
	// OpenWriter opens a writer for the file at path, creating parent
	// namespaces as needed. Closing the writer commits the file.
	OpenWriter(ctx context.Context, path string) (io.WriteCloser, error)

	// Close releases any backend clients.
	Close() error
}

// ResolveURI maps a destination URI to a FileSystem and the root path
// within it. Joining a file name onto the returned root gives the path
// to pass to OpenWriter.
func ResolveURI(ctx context.Context, uri string) (FileSystem, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid destination URI").
			WithDetail("uri", uri)
	}

	switch u.Scheme {
	case "", "file":
		root := u.Path
		if u.Scheme == "" {
			root = uri
		}
		return NewLocalFS(), root, nil
	case "gs":
		fs, err := NewGCSFS(ctx, u.Host)
		if err != nil {
			return nil, "", err
		}
		return fs, strings.TrimPrefix(u.Path, "/"), nil
	case "s3":
		fs, err := NewS3FS(ctx, u.Host)
		if err != nil {
			return nil, "", err
		}
		return fs, strings.TrimPrefix(u.Path, "/"), nil
	default:
		return nil, "", errors.New(errors.ErrorTypeConfig, "unsupported destination scheme").
			WithDetail("scheme", u.Scheme).
			WithDetail("uri", uri)
	}
}
