package announcement

import (
	"errors"

	"membership-portal/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves announcement requests.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers the announcement routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/announcements")
	group.Get("/", h.HandleList)
	group.Get("/:id", h.HandleGet)
}

// HandleList lists announcements.
// @Summary List Announcements
// @Tags announcements
// @Produce json
// @Success 200 {array} Announcement
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /announcements [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	items, err := h.store.List(c.Context())
	if err != nil {
		l.Error("Failed to list announcements", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load announcements"})
	}
	return c.JSON(items)
}

// HandleGet returns one announcement.
// @Summary Get Announcement
// @Tags announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} Announcement
// @Failure 404 {object} map[string]string "Not Found"
// @Router /announcements/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id := c.Params("id")

	item, err := h.store.Get(c.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "announcement not found"})
	}
	if err != nil {
		l.Error("Failed to get announcement", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load announcement"})
	}
	return c.JSON(item)
}
