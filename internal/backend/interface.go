// Package backend defines the entity backend port and selects its
// implementation from configuration.
package backend

import (
	"context"

	"churchadmin/internal/core"
)

// Repository reads and writes entity records.
type Repository interface {
	Create(ctx context.Context, kind core.Kind, data map[string]any) (core.Record, error)
	Update(ctx context.Context, kind core.Kind, id string, data map[string]any) (core.Record, error)
	Get(ctx context.Context, kind core.Kind, id string) (core.Record, error)
	Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error)
	// Inactivate marks a record inactive. data carries the reason fields.
	Inactivate(ctx context.Context, kind core.Kind, id string, data map[string]any) error
}

// FileStore keeps receipt files. Upload returns one URL per file.
type FileStore interface {
	Upload(ctx context.Context, kind core.Kind, files []core.File) ([]string, error)
	Delete(ctx context.Context, url string) error
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (core.Session, error)
}

// Backend is everything the console needs from the entity backend.
type Backend interface {
	Repository
	FileStore
	Authenticator
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
