package portal

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	registry *Registry
	handler  *Handler
}

// NewFeature creates the portal feature.
func NewFeature(deps Deps) *Feature {
	reg := NewRegistry(deps)
	return &Feature{registry: reg, handler: NewHandler(reg, deps.Tokens, reg.deps.Logger)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "portal"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.registry.deps.Tokens != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Registry returns the client registry, closed by the caller on shutdown.
func (f *Feature) Registry() *Registry {
	return f.registry
}
