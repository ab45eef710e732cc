package domain

import "context"

// Database defines lifecycle operations for the underlying credential store.
// Each backend (SQLite, MongoDB) owns its own schema or index setup.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
	Users() UserRepository
}
