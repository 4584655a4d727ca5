package cmd

import (
	"context"
	"fmt"

	"membership-portal/core/config"
	"membership-portal/core/database"
	"membership-portal/core/storage"
	"membership-portal/feature/announcement"
	"membership-portal/feature/identity"
	"membership-portal/feature/legacy"
	"membership-portal/feature/profile"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stores bundles the connections shared by the commands.
type stores struct {
	db       *gorm.DB
	redis    *redis.Client
	storage  storage.Client
	profiles *profile.GormStore
	mirror   *legacy.RedisStore
}

// openStores connects to the database, the legacy store and object storage.
func openStores(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*stores, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logg.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	rdb, err := legacy.Connect(ctx, cfg.Legacy)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy store: %w", err)
	}
	logg.Info("Connected to legacy store", zap.String("addr", cfg.Legacy.Addr))

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &stores{
		db:       db,
		redis:    rdb,
		storage:  client,
		profiles: profile.NewGormStore(db, client, cfg.Storage, logg),
		mirror:   legacy.NewRedisStore(rdb, cfg.Legacy.KeyPrefix),
	}, nil
}

// migrate creates or updates every table the portal owns.
func (s *stores) migrate() error {
	for _, m := range []func(*gorm.DB) error{profile.Migrate, identity.Migrate, announcement.Migrate} {
		if err := m(s.db); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func (s *stores) close() {
	_ = s.redis.Close()
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
