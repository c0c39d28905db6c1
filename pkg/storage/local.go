package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mitodl/edupipe/pkg/errors"
)

// localFS writes to the local filesystem.
type localFS struct{}

// NewLocalFS returns a FileSystem backed by the local disk.
func NewLocalFS() FileSystem {
	return localFS{}
}

func (localFS) OpenWriter(_ context.Context, path string) (io.WriteCloser, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create output directory").
			WithDetail("dir", dir)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create output file").
			WithDetail("path", path)
	}
	return f, nil
}

func (localFS) Close() error {
	return nil
}
