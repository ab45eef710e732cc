package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/msomdec/chit-chat/internal/domain"
)

// ImageHandler serves images kept in the local blob store.
type ImageHandler struct {
	files domain.FileStore
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(files domain.FileStore) *ImageHandler {
	return &ImageHandler{files: files}
}

// HandleGet streams a stored image. Keys are immutable, so responses are
// cacheable forever.
// GET /api/images/profile-pics/{key...}
func (h *ImageHandler) HandleGet(w http.ResponseWriter, r *http.Request) *Error {
	key := "profile-pics/" + r.PathValue("key")

	f, err := h.files.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Error{Kind: KindNotFound, Message: "Image not found"}
		}
		return internal(err, "get image")
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
	return nil
}
