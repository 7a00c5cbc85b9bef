package media_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pressflow/newsroom/internal/media"
)

func fileHeader(name, contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: name,
		Header:   h,
		Size:     size,
	}
}

func imageHeaders(n int) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fileHeader("pic.jpg", "image/jpeg", 1024))
	}
	return out
}

func videoHeaders(n int) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fileHeader("clip.mp4", "video/mp4", 1024))
	}
	return out
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		images  []*multipart.FileHeader
		videos  []*multipart.FileHeader
		wantErr error
	}{
		{
			name:   "within_limits",
			images: imageHeaders(media.MaxImages),
			videos: videoHeaders(media.MaxVideos),
		},
		{
			name:    "too_many_images",
			images:  imageHeaders(media.MaxImages + 1),
			wantErr: media.ErrTooManyFiles,
		},
		{
			name:    "too_many_videos",
			videos:  videoHeaders(media.MaxVideos + 1),
			wantErr: media.ErrTooManyFiles,
		},
		{
			name:    "oversized_file",
			images:  []*multipart.FileHeader{fileHeader("huge.png", "image/png", media.MaxFileSize+1)},
			wantErr: media.ErrFileTooLarge,
		},
		{
			name:    "disallowed_mime",
			images:  []*multipart.FileHeader{fileHeader("payload.svg", "image/svg+xml", 1024)},
			wantErr: media.ErrBadMimeType,
		},
		{
			name:    "executable_disguised_as_upload",
			videos:  []*multipart.FileHeader{fileHeader("run.exe", "application/octet-stream", 1024)},
			wantErr: media.ErrBadMimeType,
		},
		{
			name: "empty_request",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			err := media.ValidateUpload(tt.images, tt.videos)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// parseUpload builds a real multipart request so the FileHeaders are
// backed by openable content.
func parseUpload(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	files := req.MultipartForm.File[field]
	require.Len(t, files, 1)

	return files[0]
}

func TestDiskStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	store, err := media.NewDiskStore(dir)
	require.NoError(t, err)

	fh := parseUpload(t, "images", "cat.jpg", "jpeg-bytes")

	path, err := store.Save(context.Background(), fh)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(path, "uploads/"), "path should be relative to the serving root: %s", path)
	require.True(t, strings.HasSuffix(path, "-cat.jpg"), "original name should survive: %s", path)
	require.NotContains(t, path, "\\")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
}

// Same original filename twice must never clobber the first upload.
func TestDiskStoreNoCollisions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	store, err := media.NewDiskStore(dir)
	require.NoError(t, err)

	p1, err := store.Save(context.Background(), parseUpload(t, "images", "cat.jpg", "first"))
	require.NoError(t, err)

	// the object name is timestamp-prefixed at millisecond resolution
	time.Sleep(2 * time.Millisecond)

	p2, err := store.Save(context.Background(), parseUpload(t, "images", "cat.jpg", "second"))
	require.NoError(t, err)

	require.NotEqual(t, p1, p2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSaveAllPreservesOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	store, err := media.NewDiskStore(dir)
	require.NoError(t, err)

	files := []*multipart.FileHeader{
		parseUpload(t, "images", "a.jpg", "aaa"),
		parseUpload(t, "images", "b.jpg", "bbb"),
		parseUpload(t, "images", "c.jpg", "ccc"),
	}

	paths, err := media.SaveAll(context.Background(), store, files)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	require.True(t, strings.HasSuffix(paths[0], "-a.jpg"))
	require.True(t, strings.HasSuffix(paths[1], "-b.jpg"))
	require.True(t, strings.HasSuffix(paths[2], "-c.jpg"))
}
