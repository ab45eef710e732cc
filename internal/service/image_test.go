package service_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/msomdec/chit-chat/internal/domain"
	"github.com/msomdec/chit-chat/internal/service"
)

type fakeUploader struct {
	calls   int
	err     error
	deleted []string
}

func (f *fakeUploader) Upload(_ context.Context, img domain.ImageUpload) (*domain.UploadedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UploadedImage{
		Key:       "profile-pics/test.png",
		SecureURL: "https://img.example.com/profile-pics/test.png",
	}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

// failingUsers fails every profile picture write.
type failingUsers struct {
	domain.UserRepository
	err error
}

func (f failingUsers) UpdateProfilePic(context.Context, string, string) (*domain.User, error) {
	return nil, f.err
}

var testPNG = "data:image/png;base64," +
	base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))

func newTestProfileService(t *testing.T, up domain.ImageUploader) (*service.ProfileService, *domain.User) {
	t.Helper()
	db := newTestDB(t)
	user := &domain.User{FullName: "Pic", Email: "pic@example.com", PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return service.NewProfileService(db.Users(), up, 0), user
}

func TestProfileService_UpdateProfilePic(t *testing.T) {
	up := &fakeUploader{}
	profiles, user := newTestProfileService(t, up)

	updated, err := profiles.UpdateProfilePic(context.Background(), user.ID, testPNG)
	if err != nil {
		t.Fatalf("UpdateProfilePic: %v", err)
	}
	if updated.ProfilePic != "https://img.example.com/profile-pics/test.png" {
		t.Fatalf("expected secure URL stored, got %q", updated.ProfilePic)
	}
	if up.calls != 1 {
		t.Fatalf("expected 1 upload, got %d", up.calls)
	}
}

func TestProfileService_MissingPicDoesNotUpload(t *testing.T) {
	up := &fakeUploader{}
	profiles, user := newTestProfileService(t, up)

	_, err := profiles.UpdateProfilePic(context.Background(), user.ID, "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err.Error() != "Profile pic is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if up.calls != 0 {
		t.Fatalf("expected no upload, got %d", up.calls)
	}
}

func TestProfileService_InvalidImageDoesNotUpload(t *testing.T) {
	up := &fakeUploader{}
	profiles, user := newTestProfileService(t, up)

	payload := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("just some text"))
	_, err := profiles.UpdateProfilePic(context.Background(), user.ID, payload)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if up.calls != 0 {
		t.Fatalf("expected no upload, got %d", up.calls)
	}
}

func TestProfileService_UploadFailure(t *testing.T) {
	boom := errors.New("image host down")
	profiles, user := newTestProfileService(t, &fakeUploader{err: boom})

	_, err := profiles.UpdateProfilePic(context.Background(), user.ID, testPNG)
	if !errors.Is(err, boom) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		t.Fatal("upload failure must not look like a validation error")
	}
}

func TestProfileService_UnknownUser(t *testing.T) {
	profiles, _ := newTestProfileService(t, &fakeUploader{})

	_, err := profiles.UpdateProfilePic(context.Background(), "missing", testPNG)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileService_StoreFailureRemovesUpload(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("disk full")
	up := &fakeUploader{}
	profiles := service.NewProfileService(failingUsers{UserRepository: db.Users(), err: boom}, up, 0)

	_, err := profiles.UpdateProfilePic(context.Background(), "any-user", testPNG)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if up.calls != 1 {
		t.Fatalf("expected 1 upload, got %d", up.calls)
	}
	if len(up.deleted) != 1 || up.deleted[0] != "profile-pics/test.png" {
		t.Fatalf("expected uploaded key to be deleted, got %v", up.deleted)
	}
}

func TestProfileService_UnknownUserRemovesUpload(t *testing.T) {
	up := &fakeUploader{}
	profiles, _ := newTestProfileService(t, up)

	if _, err := profiles.UpdateProfilePic(context.Background(), "missing", testPNG); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(up.deleted) != 1 {
		t.Fatalf("expected orphaned upload to be deleted, got %v", up.deleted)
	}
}
