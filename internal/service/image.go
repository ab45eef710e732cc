package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/msomdec/chit-chat/internal/domain"
	"github.com/msomdec/chit-chat/internal/imagehost"
)

// ProfileService orchestrates profile picture uploads.
type ProfileService struct {
	users         domain.UserRepository
	uploader      domain.ImageUploader
	maxImageBytes int
}

// NewProfileService creates a new ProfileService. A non-positive
// maxImageBytes falls back to imagehost.DefaultMaxImageBytes.
func NewProfileService(users domain.UserRepository, uploader domain.ImageUploader, maxImageBytes int) *ProfileService {
	return &ProfileService{users: users, uploader: uploader, maxImageBytes: maxImageBytes}
}

// UpdateProfilePic decodes payload, uploads it to the image host, and stores
// the resulting URL on the user. Nothing is uploaded when the payload is
// missing or invalid.
func (s *ProfileService) UpdateProfilePic(ctx context.Context, userID, payload string) (*domain.User, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, domain.Invalid("Profile pic is required")
	}

	img, err := imagehost.DecodePayload(payload, s.maxImageBytes)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.uploader.Upload(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	slog.InfoContext(ctx, "profile pic uploaded", "user_id", userID, "key", uploaded.Key, "bytes", len(img.Data))

	user, err := s.users.UpdateProfilePic(ctx, userID, uploaded.SecureURL)
	if err != nil {
		if derr := s.uploader.Delete(ctx, uploaded.Key); derr != nil {
			slog.WarnContext(ctx, "orphaned profile pic", "key", uploaded.Key, "error", derr)
		}
		return nil, fmt.Errorf("store profile pic: %w", err)
	}
	return user, nil
}
