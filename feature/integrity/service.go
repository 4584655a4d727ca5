package integrity

import (
	"context"

	"membership-portal/core/storage"
	"membership-portal/feature/announcement"
	"membership-portal/feature/identity"
	"membership-portal/feature/integrity/checks"
	"membership-portal/feature/profile"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequiredTables lists the tables the portal depends on.
var RequiredTables = []checks.Table{
	{Name: profile.Record{}.TableName(), Columns: profile.Columns},
	{Name: identity.Credential{}.TableName(), Columns: identity.CredentialColumns},
	{Name: announcement.Announcement{}.TableName(), Columns: announcement.Columns},
}

// Service handles integrity checks.
type Service struct {
	client  storage.Client
	storage storage.Config
	db      *gorm.DB
	legacy  redis.Cmdable
	logger  *zap.Logger
}

// NewService creates a new integrity service.
func NewService(client storage.Client, cfg storage.Config, db *gorm.DB, legacy redis.Cmdable, logger *zap.Logger) *Service {
	return &Service{
		client:  client,
		storage: cfg,
		db:      db,
		legacy:  legacy,
		logger:  logger,
	}
}

// CheckStorage reports whether the photo bucket exists.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	return checks.CheckStorage(ctx, s.client, s.storage.Bucket)
}

// FixStorage creates the photo bucket when missing.
func (s *Service) FixStorage(ctx context.Context) (*checks.StorageReport, error) {
	return checks.FixStorage(ctx, s.client, s.storage.Bucket, s.storage.Region, s.logger)
}

// CheckSchema inspects the required tables.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, RequiredTables)
}

// CheckLegacy pings the legacy document store.
func (s *Service) CheckLegacy(ctx context.Context) (*checks.LegacyReport, error) {
	return checks.CheckLegacy(ctx, s.legacy)
}
