package backend

import (
	"context"
	"fmt"
	"log/slog"

	"churchadmin/internal/backend/api"
	"churchadmin/internal/backend/memory"
	"churchadmin/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case APIBackend:
		return f.createAPIBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAPIBackend(config Config) (*BackendResult, error) {
	client, err := api.New(config.APIBaseURL,
		api.WithTimeout(config.APITimeout),
		api.WithRetries(config.APIRetries),
		api.WithLogger(f.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	f.logger.Info("Initialized API backend", "base_url", config.APIBaseURL)
	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if config.AdminEmail != "" && config.AdminPassword != "" {
		if err := repo.EnsureAdmin(ctx, config.AdminEmail, config.AdminPassword); err != nil {
			repo.Close()
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.New()
	if config.AdminEmail != "" && config.AdminPassword != "" {
		if err := store.EnsureAdmin(ctx, config.AdminEmail, config.AdminPassword); err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
	}
	f.logger.Info("Initialized memory backend", "admin", config.AdminEmail)
	return &BackendResult{Backend: store}, nil
}
