package announcement

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the announcement feature over db.
func NewFeature(db *gorm.DB, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(NewGormStore(db), logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "announcement"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
