package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/msomdec/chit-chat/internal/domain"
)

// Verify that *DB implements domain.Database at compile time.
var _ domain.Database = (*DB)(nil)

func TestUserDocument_ToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	now := time.Now().UTC()
	doc := userDocument{
		ID:         oid,
		FullName:   "Doc User",
		Email:      "doc@example.com",
		Password:   "$2a$10$hash",
		ProfilePic: "https://img.example.com/p.png",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	u := doc.toDomain()
	if u.ID != oid.Hex() {
		t.Fatalf("expected id %s, got %s", oid.Hex(), u.ID)
	}
	if u.PasswordHash != "$2a$10$hash" {
		t.Fatalf("expected password hash to map, got %q", u.PasswordHash)
	}
	if u.ProfilePic != doc.ProfilePic {
		t.Fatalf("expected profile pic %q, got %q", doc.ProfilePic, u.ProfilePic)
	}
}

func TestUserRepository_NonObjectIDIsNotFound(t *testing.T) {
	// The collection is never touched for ids that cannot be ObjectIDs.
	repo := &UserRepository{}

	if _, err := repo.GetByID(context.Background(), "not-an-object-id"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.UpdateProfilePic(context.Background(), "not-an-object-id", "u"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateProfilePic: expected ErrNotFound, got %v", err)
	}
}

// TestUserRepository_Live runs against a real deployment when
// TEST_MONGODB_URI is set.
func TestUserRepository_Live(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx := context.Background()

	db, err := New(ctx, uri, fmt.Sprintf("chit_chat_test_%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		db.db.Drop(context.Background())
		db.Close()
	})
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	repo := db.Users()

	user := &domain.User{FullName: "Live", Email: "live@example.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected ID to be assigned")
	}

	dup := &domain.User{FullName: "Live 2", Email: "live@example.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	found, err := repo.GetByEmail(ctx, "live@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("expected id %s, got %s", user.ID, found.ID)
	}

	updated, err := repo.UpdateProfilePic(ctx, user.ID, "https://img.example.com/live.png")
	if err != nil {
		t.Fatalf("UpdateProfilePic: %v", err)
	}
	if updated.ProfilePic != "https://img.example.com/live.png" {
		t.Fatalf("expected updated pic, got %q", updated.ProfilePic)
	}

	if _, err := repo.GetByID(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
