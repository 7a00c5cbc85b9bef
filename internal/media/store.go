// Package media handles uploaded article attachments. Validation happens
// here; the bytes themselves land in a blob store behind the Store
// interface, which hands back a stable path for the article record.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"
)

const (
	MaxImages   = 5
	MaxVideos   = 2
	MaxFileSize = 10 << 20 // 10 MB per file
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"video/mp4":  {},
	"video/mpeg": {},
}

var (
	ErrTooManyFiles = errors.New("too many files")
	ErrFileTooLarge = errors.New("file exceeds the 10MB limit")
	ErrBadMimeType  = errors.New("invalid file type, only images and videos are allowed")
)

type Store interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (path string, err error)
}

// ValidateUpload checks counts, per-file size and MIME before anything is
// written. A request that fails here has no partial effect.
func ValidateUpload(images, videos []*multipart.FileHeader) error {
	if len(images) > MaxImages {
		return fmt.Errorf("%w: at most %d images", ErrTooManyFiles, MaxImages)
	}
	if len(videos) > MaxVideos {
		return fmt.Errorf("%w: at most %d videos", ErrTooManyFiles, MaxVideos)
	}

	for _, fh := range append(append([]*multipart.FileHeader{}, images...), videos...) {
		if fh.Size > MaxFileSize {
			return fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
		}
		if _, ok := allowedMimeTypes[fh.Header.Get("Content-Type")]; !ok {
			return fmt.Errorf("%w: %s", ErrBadMimeType, fh.Filename)
		}
	}

	return nil
}

// SaveAll stores every file and returns their paths in upload order.
func SaveAll(ctx context.Context, store Store, files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))

	for _, fh := range files {
		p, err := store.Save(ctx, fh)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	return paths, nil
}

// objectName prefixes the original name with a timestamp so collisions
// between same-named uploads are impossible in practice.
func objectName(fh *multipart.FileHeader) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(fh.Filename))
}
