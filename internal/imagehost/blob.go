package imagehost

import (
	"context"
	"fmt"
	"strings"

	"github.com/msomdec/chit-chat/internal/domain"
)

// ImageRoutePrefix is the path under which blob-stored images are served.
const ImageRoutePrefix = "/api/images/"

// BlobUploader implements domain.ImageUploader on a domain.FileStore and
// hands out URLs served by this application.
type BlobUploader struct {
	files   domain.FileStore
	baseURL string
}

// NewBlobUploader creates a BlobUploader. baseURL is the public origin of
// this server, e.g. "https://chat.example.com".
func NewBlobUploader(files domain.FileStore, baseURL string) *BlobUploader {
	return &BlobUploader{files: files, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *BlobUploader) Upload(ctx context.Context, img domain.ImageUpload) (*domain.UploadedImage, error) {
	key := NewStorageKey(img.ContentType)
	if err := u.files.Save(ctx, key, img.ContentType, img.Data); err != nil {
		return nil, fmt.Errorf("save blob %s: %w", key, err)
	}
	return &domain.UploadedImage{Key: key, SecureURL: u.baseURL + ImageRoutePrefix + key}, nil
}

func (u *BlobUploader) Delete(ctx context.Context, key string) error {
	if err := u.files.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
