package system

import (
	"context"
	"fmt"

	"github.com/KevinKickass/railboard/internal/config"
	"github.com/KevinKickass/railboard/internal/storage"
	"github.com/KevinKickass/railboard/internal/syncer"
	"go.uber.org/zap"
)

// OpenBackend connects the configured backing store. The returned func
// releases it.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (syncer.Backend, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		fs, err := storage.NewFileStore(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file backing store", zap.String("data_dir", cfg.Storage.DataDir))
		return fs, func() {}, nil

	case config.BackendPostgres:
		db, err := storage.NewPostgresClient(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Database connected successfully",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database))
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
