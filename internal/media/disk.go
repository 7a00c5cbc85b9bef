package media

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// DiskStore writes uploads under a local directory, mirroring the classic
// uploads-folder setup. Suited for single-node deployments and dev.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := objectName(fh)
	full := filepath.Join(s.dir, name)

	dst, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(full)
		return "", err
	}

	return filepath.ToSlash(filepath.Join(filepath.Base(s.dir), name)), nil
}
