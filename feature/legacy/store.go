package legacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates no document exists for the requested id.
var ErrNotFound = errors.New("legacy document not found")

const (
	fieldName      = "name"
	fieldEmail     = "email"
	fieldRole      = "role"
	fieldPhotoURL  = "photoUrl"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

// Document is the legacy representation of a user profile.
// Zero values mean "not set".
type Document struct {
	Name      string
	Email     string
	Role      string
	PhotoURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store reads and writes legacy documents.
type Store interface {
	Get(ctx context.Context, id string) (*Document, error)
	// Merge writes the set fields of doc and leaves the others untouched.
	Merge(ctx context.Context, id string, doc Document) error
	// Replace makes doc the whole document for id.
	Replace(ctx context.Context, id string, doc Document) error
	IDs(ctx context.Context) ([]string, error)
}

// RedisStore keeps documents as Redis hashes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store on client with keys under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Connect creates a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("legacy: ping: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Get returns the document for id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Document, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("legacy: get %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	doc := &Document{
		Name:     fields[fieldName],
		Email:    fields[fieldEmail],
		Role:     fields[fieldRole],
		PhotoURL: fields[fieldPhotoURL],
	}
	if doc.CreatedAt, err = parseTime(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("legacy: %s createdAt: %w", id, err)
	}
	if doc.UpdatedAt, err = parseTime(fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("legacy: %s updatedAt: %w", id, err)
	}
	return doc, nil
}

// Merge writes the set fields of doc onto the document for id.
func (s *RedisStore) Merge(ctx context.Context, id string, doc Document) error {
	values := doc.fields()
	if len(values) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.key(id), values).Err(); err != nil {
		return fmt.Errorf("legacy: merge %s: %w", id, err)
	}
	return nil
}

// Replace atomically swaps the document for id with doc.
func (s *RedisStore) Replace(ctx context.Context, id string, doc Document) error {
	values := doc.fields()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		if len(values) > 0 {
			pipe.HSet(ctx, s.key(id), values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("legacy: replace %s: %w", id, err)
	}
	return nil
}

// IDs lists the ids of every stored document.
func (s *RedisStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("legacy: scan: %w", err)
	}
	return ids, nil
}

func (d Document) fields() map[string]any {
	values := make(map[string]any, 6)
	set := func(k, v string) {
		if v != "" {
			values[k] = v
		}
	}
	set(fieldName, d.Name)
	set(fieldEmail, d.Email)
	set(fieldRole, d.Role)
	set(fieldPhotoURL, d.PhotoURL)
	if !d.CreatedAt.IsZero() {
		values[fieldCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !d.UpdatedAt.IsZero() {
		values[fieldUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return values
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}
