package integrity

import (
	"context"
	"testing"

	"membership-portal/core/database"
	"membership-portal/core/storage"
	"membership-portal/core/storage/mocks"
	"membership-portal/feature/announcement"
	"membership-portal/feature/identity"
	"membership-portal/feature/profile"

	"github.com/alicebob/miniredis/v2"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var storageCfg = storage.Config{Bucket: "test-bucket", Region: "us-east-1"}

func setupSQLite(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	if migrate {
		require.NoError(t, profile.Migrate(db))
		require.NoError(t, identity.Migrate(db))
		require.NoError(t, announcement.Migrate(db))
	}
	return db
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestService_Storage(t *testing.T) {
	mockClient := new(mocks.Client)
	rdb, _ := setupRedis(t)
	svc := NewService(mockClient, storageCfg, nil, rdb, zap.NewNop())

	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)
	mockClient.On("MakeBucket", mock.Anything, "test-bucket", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	report, err := svc.CheckStorage(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Exists)

	report, err = svc.FixStorage(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Created)
	mockClient.AssertExpectations(t)
}

func TestService_SchemaMigrated(t *testing.T) {
	rdb, _ := setupRedis(t)
	svc := NewService(new(mocks.Client), storageCfg, setupSQLite(t, true), rdb, zap.NewNop())

	report, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Len(t, report.Tables, 3)
	for name, tbl := range report.Tables {
		assert.Equal(t, "ok", tbl.Status, name)
	}
}

func TestService_SchemaEmpty(t *testing.T) {
	rdb, _ := setupRedis(t)
	svc := NewService(new(mocks.Client), storageCfg, setupSQLite(t, false), rdb, zap.NewNop())

	report, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.ElementsMatch(t, profile.Columns, report.Tables["users"].MissingColumns)
}

func TestService_Legacy(t *testing.T) {
	rdb, _ := setupRedis(t)
	svc := NewService(new(mocks.Client), storageCfg, nil, rdb, zap.NewNop())

	report, err := svc.CheckLegacy(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Reachable)
}
