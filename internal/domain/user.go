package domain

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	ProfilePic   string // URL returned by the image host, empty until set
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines persistence operations for users.
// Implementations assign ID on Create and return ErrDuplicateEmail when the
// email is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// UpdateProfilePic stores the new picture URL and returns the updated user.
	UpdateProfilePic(ctx context.Context, id, url string) (*User, error)
}
