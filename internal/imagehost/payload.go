// Package imagehost uploads profile pictures to hosted storage and decodes
// the base64 payloads browsers send for them.
package imagehost

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/chit-chat/internal/domain"
)

// DefaultMaxImageBytes caps a decoded upload when no limit is configured.
const DefaultMaxImageBytes = 5 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DecodePayload turns a "data:<mime>;base64,<data>" URL or bare base64 string
// into image bytes. The content type is sniffed from the bytes rather than
// trusted from the header. Failures are domain.InputError values.
func DecodePayload(payload string, maxBytes int) (domain.ImageUpload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	encoded := strings.TrimSpace(payload)
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return domain.ImageUpload{}, domain.Invalid("Profile pic must be a base64 data URL")
		}
		encoded = data
	}
	if encoded == "" {
		return domain.ImageUpload{}, domain.Invalid("Profile pic is required")
	}

	if base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+3 {
		return domain.ImageUpload{}, tooLarge(maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return domain.ImageUpload{}, domain.Invalid("Profile pic is not valid base64")
		}
	}
	if len(data) > maxBytes {
		return domain.ImageUpload{}, tooLarge(maxBytes)
	}

	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return domain.ImageUpload{}, domain.Invalid("Profile pic must be a JPEG, PNG, GIF or WebP image")
	}

	return domain.ImageUpload{Data: data, ContentType: contentType}, nil
}

func tooLarge(maxBytes int) error {
	return domain.Invalid(fmt.Sprintf("Profile pic must be smaller than %d KB", maxBytes>>10))
}

// NewStorageKey returns a unique, date-partitioned object key for an image.
func NewStorageKey(contentType string) string {
	d := time.Now().UTC()
	return path.Join("profile-pics",
		fmt.Sprintf("%04d/%02d/%02d", d.Year(), d.Month(), d.Day()),
		uuid.NewString()+extensions[contentType])
}
