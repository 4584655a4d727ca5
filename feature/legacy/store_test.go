package legacy_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"membership-portal/feature/legacy"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*legacy.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return legacy.NewRedisStore(client, "users:"), mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := newStore(t)

	doc, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, legacy.ErrNotFound)
	assert.Nil(t, doc)
}

func TestRedisStore_MergeKeepsUnsetFields(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	created := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Merge(ctx, "u1", legacy.Document{
		Name:      "Ada",
		Email:     "ada@club.org",
		Role:      "Core",
		CreatedAt: created,
	}))

	updated := created.Add(48 * time.Hour)
	require.NoError(t, store.Merge(ctx, "u1", legacy.Document{Name: "Ada L.", UpdatedAt: updated}))

	doc, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", doc.Name)
	assert.Equal(t, "ada@club.org", doc.Email)
	assert.Equal(t, "Core", doc.Role)
	assert.Empty(t, doc.PhotoURL)
	assert.True(t, created.Equal(doc.CreatedAt))
	assert.True(t, updated.Equal(doc.UpdatedAt))

	assert.Equal(t, "Ada L.", mr.HGet("users:u1", "name"))
}

func TestRedisStore_MergeEmptyIsNoop(t *testing.T) {
	store, mr := newStore(t)

	require.NoError(t, store.Merge(context.Background(), "u1", legacy.Document{}))
	assert.False(t, mr.Exists("users:u1"))
}

func TestRedisStore_GetBadTimestamp(t *testing.T) {
	store, mr := newStore(t)
	mr.HSet("users:u1", "name", "Ada", "createdAt", "yesterday")

	_, err := store.Get(context.Background(), "u1")
	assert.ErrorContains(t, err, "createdAt")
}

func TestRedisStore_IDs(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Merge(ctx, "u1", legacy.Document{Name: "A"}))
	require.NoError(t, store.Merge(ctx, "u2", legacy.Document{Name: "B"}))
	require.NoError(t, mr.Set("other:key", "x"))

	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"u1", "u2"}, ids)
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "u1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, legacy.ErrNotFound)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := legacy.Connect(context.Background(), legacy.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = legacy.Connect(context.Background(), legacy.Config{Addr: mr.Addr()})
	assert.Error(t, err)
}

func TestRedisStore_ReplaceDropsMissingFields(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "u1", legacy.Document{Name: "Ada", Email: "ada@club.org", PhotoURL: "http://cdn/a.png"}))
	require.NoError(t, store.Replace(ctx, "u1", legacy.Document{Name: "Ada", Email: "ada@club.org", Role: "EB"}))

	doc, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, doc.PhotoURL)
	assert.Equal(t, "EB", doc.Role)
	assert.False(t, mr.Exists("users:u2"))
}
