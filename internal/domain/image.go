package domain

import "context"

// ImageUpload is a decoded image ready to be handed to an ImageUploader.
type ImageUpload struct {
	Data        []byte
	ContentType string // "image/jpeg", "image/png", "image/gif" or "image/webp"
}

// UploadedImage describes where the image host put an upload.
type UploadedImage struct {
	Key       string
	SecureURL string
}

// ImageUploader stores images with a hosted service and returns a public URL.
// Delete removes an upload by its Key; it is used to roll back an upload
// whose URL could not be saved.
type ImageUploader interface {
	Upload(ctx context.Context, img ImageUpload) (*UploadedImage, error)
	Delete(ctx context.Context, key string) error
}

// StoredFile is a blob together with the content type it was saved with.
type StoredFile struct {
	Data        []byte
	ContentType string
}

// FileStore abstracts raw file byte storage.
// The SQLite implementation keeps BLOBs in the database so a single-node
// deployment works without an object store.
type FileStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (*StoredFile, error)
	Delete(ctx context.Context, key string) error
}
