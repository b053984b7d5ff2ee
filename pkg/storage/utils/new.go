package storageutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/storage"
	"github.com/papercomputeco/treeagent/pkg/storage/inmemory"
	"github.com/papercomputeco/treeagent/pkg/storage/postgres"
	"github.com/papercomputeco/treeagent/pkg/storage/sqlite"
	"github.com/papercomputeco/treeagent/pkg/workspace"
)

type NewDriverOpts struct {
	// ProviderType is one of "sqlite", "postgres" or "memory"
	ProviderType string

	// Workspace is the agent workspace directory
	Workspace string

	// SQLitePath overrides <workspace>/treeagent.db
	SQLitePath string

	// PostgresDSN is required for the postgres provider
	PostgresDSN string

	Logger *zap.Logger
}

// NewDriver opens the storage driver named by o.ProviderType.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	switch o.ProviderType {
	case "sqlite", "":
		path := o.SQLitePath
		if path == "" {
			path = workspace.DatabasePath(o.Workspace)
		}

		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		o.Logger.Debug("using SQLite storage", zap.String("path", path))
		return driver, nil

	case "postgres":
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}

		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		o.Logger.Debug("using PostgreSQL storage")
		return driver, nil

	case "memory":
		o.Logger.Debug("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
