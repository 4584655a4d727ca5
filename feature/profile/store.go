package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"membership-portal/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads and writes profile records and uploads profile photos.
type Store interface {
	// FetchProfile returns the record for id, or ErrNotFound.
	FetchProfile(ctx context.Context, id string) (*Record, error)
	// UpsertProfile inserts rec or merges it onto the existing record with the same id.
	UpsertProfile(ctx context.Context, rec Record) error
	// UploadImage stores a photo for ownerID and returns its public URL.
	UploadImage(ctx context.Context, ownerID string, r io.Reader, size int64, contentType string) (string, error)
}

// GormStore is the relational profile store with photos in object storage.
type GormStore struct {
	db      *gorm.DB
	client  storage.Client
	storage storage.Config
	logger  *zap.Logger
}

// NewGormStore creates a Store over db and the photo bucket described by cfg.
func NewGormStore(db *gorm.DB, client storage.Client, cfg storage.Config, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, client: client, storage: cfg, logger: logger}
}

// FetchProfile returns the record for id.
func (s *GormStore) FetchProfile(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "fetch", ID: id, Err: err}
	}
	return &rec, nil
}

// UpsertProfile inserts rec, or on an id conflict updates name, updated_at and,
// when rec carries one, photo_url. Email, role and created_at are never rewritten.
func (s *GormStore) UpsertProfile(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return &StoreError{Op: "upsert", Err: errors.New("missing id")}
	}

	update := []string{"name", "updated_at"}
	if rec.PhotoURL != nil {
		update = append(update, "photo_url")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(update),
	}).Create(&rec).Error
	if err != nil {
		return &StoreError{Op: "upsert", ID: rec.ID, Err: err}
	}
	return nil
}

// UploadImage uploads a photo for ownerID under "<owner>/avatar.<ext>", removing any
// avatar of the same owner stored under a different extension.
func (s *GormStore) UploadImage(ctx context.Context, ownerID string, r io.Reader, size int64, contentType string) (string, error) {
	if ownerID == "" || strings.ContainsAny(ownerID, "/\\") {
		return "", &UploadError{OwnerID: ownerID, Reason: "invalid owner id"}
	}
	if size <= 0 || size > MaxImageBytes {
		return "", &UploadError{OwnerID: ownerID, Reason: fmt.Sprintf("size %d outside 1..%d bytes", size, MaxImageBytes)}
	}
	key, ok := AvatarKey(ownerID, contentType)
	if !ok {
		return "", &UploadError{OwnerID: ownerID, Reason: fmt.Sprintf("content type %q is not an accepted image type", contentType)}
	}

	_, err := s.client.PutObject(ctx, s.storage.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "no-cache",
	})
	if err != nil {
		return "", &UploadError{OwnerID: ownerID, Reason: "storage rejected the object", Err: err}
	}

	s.removeStaleAvatars(ctx, ownerID, key)

	return s.storage.PublicURL(key), nil
}

// removeStaleAvatars deletes avatars of ownerID other than keep. Failures only log:
// the new photo is already in place.
func (s *GormStore) removeStaleAvatars(ctx context.Context, ownerID, keep string) {
	opts := minio.ListObjectsOptions{Prefix: AvatarPrefix(ownerID), Recursive: false}
	for obj := range s.client.ListObjects(ctx, s.storage.Bucket, opts) {
		if obj.Err != nil {
			s.logger.Warn("Failed to list stale avatars", zap.String("owner", ownerID), zap.Error(obj.Err))
			return
		}
		if obj.Key == keep || !strings.HasPrefix(obj.Key, AvatarPrefix(ownerID)) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.storage.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			s.logger.Warn("Failed to remove stale avatar", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		s.logger.Debug("Removed stale avatar", zap.String("key", obj.Key))
	}
}

// AllProfiles returns every profile record ordered by id.
func (s *GormStore) AllProfiles(ctx context.Context) ([]Record, error) {
	var recs []Record
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return recs, nil
}

// insertBatchSize bounds the rows per INSERT statement of InsertMissing.
const insertBatchSize = 200

// InsertMissing inserts recs, skipping any whose id or email already exists.
func (s *GormStore) InsertMissing(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&recs, insertBatchSize).Error
	if err != nil {
		return &StoreError{Op: "insert", ID: recs[0].ID, Err: err}
	}
	return nil
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}
