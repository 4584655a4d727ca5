package announcement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"membership-portal/core/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	venue := "Hall B"
	seed := []Announcement{
		{ID: "a1", Title: "Old low", Priority: PriorityLow, CreatedAt: base},
		{ID: "a2", Title: "New medium", Priority: PriorityMedium, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a3", Title: "Old high", Priority: PriorityHigh, CreatedAt: base, Venue: &venue},
		{ID: "a4", Title: "New high", Priority: PriorityHigh, CreatedAt: base.Add(time.Hour)},
	}
	require.NoError(t, db.Create(&seed).Error)
	return NewGormStore(db)
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Less(t, PriorityLow.Rank(), Priority("Urgent").Rank())
}

func TestGormStore_List(t *testing.T) {
	items, err := setupStore(t).List(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"a4", "a3", "a2", "a1"}, ids)
}

func TestGormStore_Get(t *testing.T) {
	store := setupStore(t)

	item, err := store.Get(context.Background(), "a3")
	require.NoError(t, err)
	assert.Equal(t, "Old high", item.Title)
	require.NotNil(t, item.Venue)
	assert.Equal(t, "Hall B", *item.Venue)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ListError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `announcements`").WillReturnError(errors.New("connection reset"))

	_, err = NewGormStore(db).List(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func setupApp(t *testing.T) *fiber.App {
	app := fiber.New()
	NewHandler(setupStore(t), zap.NewNop()).RegisterRoutes(app)
	return app
}

func TestHandleList(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/announcements", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body []Announcement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 4)
	assert.Equal(t, "a4", body[0].ID)
}

func TestHandleGet(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/announcements/a2", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body Announcement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, PriorityMedium, body.Priority)

	resp, err = app.Test(httptest.NewRequest("GET", "/announcements/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestLoader(t *testing.T) {
	feature := NewFeature(nil, zap.NewNop())

	assert.Equal(t, "announcement", feature.Name())
	assert.True(t, feature.IsEnabled())
	assert.NoError(t, feature.Load(fiber.New()))
}
