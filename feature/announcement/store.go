package announcement

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ErrNotFound indicates no announcement exists for the requested id.
var ErrNotFound = errors.New("announcement not found")

// Store reads announcements.
type Store interface {
	List(ctx context.Context) ([]Announcement, error)
	Get(ctx context.Context, id string) (*Announcement, error)
}

// GormStore reads announcements from the relational store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store over db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// List returns every announcement, highest priority first, then newest first.
func (s *GormStore) List(ctx context.Context) ([]Announcement, error) {
	var items []Announcement
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	Sort(items)
	return items, nil
}

// Get returns the announcement with id.
func (s *GormStore) Get(ctx context.Context, id string) (*Announcement, error) {
	var item Announcement
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get announcement %s: %w", id, err)
	}
	return &item, nil
}

// Sort orders items by priority rank, then by creation time descending.
func Sort(items []Announcement) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.Rank(), items[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Migrate creates or updates the announcements table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Announcement{})
}
