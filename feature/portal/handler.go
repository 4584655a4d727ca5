package portal

import (
	"context"
	"errors"
	"time"

	"membership-portal/core/logger"
	"membership-portal/core/middleware/auth"
	"membership-portal/feature/editor"
	"membership-portal/feature/identity"
	"membership-portal/feature/profile"
	"membership-portal/feature/session"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the member session endpoints.
type Handler struct {
	registry *Registry
	tokens   *identity.Tokens
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(registry *Registry, tokens *identity.Tokens, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, tokens: tokens, logger: logger}
}

// RegisterRoutes registers the portal routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/auth/login", h.HandleLogin)

	protected := app.Group("", auth.Bearer(h.validate))
	protected.Post("/auth/logout", h.HandleLogout)
	protected.Get("/me", h.HandleMe)
	protected.Put("/profile", h.HandleUpdateProfile)
}

func (h *Handler) validate(ctx context.Context, token string) (any, error) {
	if _, err := h.tokens.Verify(token); err != nil {
		return nil, err
	}
	return h.registry.Client(ctx, token)
}

func client(c *fiber.Ctx) *Client {
	cl, _ := c.Locals(auth.PrincipalKey).(*Client)
	return cl
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	State     string           `json:"state"`
	Session   *session.Session `json:"session"`
}

// SessionResponse describes the live session of a client instance.
type SessionResponse struct {
	State   string           `json:"state"`
	Session *session.Session `json:"session"`
}

// ProfileResponse is returned by PUT /profile.
type ProfileResponse struct {
	Message string           `json:"message"`
	Session *session.Session `json:"session,omitempty"`
	Notice  *editor.Notice   `json:"notice,omitempty"`
}

// HandleLogin signs in and creates a client instance.
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/login [post]
func (h *Handler) HandleLogin(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	id, cl, err := h.registry.Login(c.UserContext(), req.Email, req.Password, profile.Role(req.Role), req.Name)
	if err != nil {
		var authErr *identity.AuthError
		switch {
		case errors.Is(err, session.ErrInvalidRole):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role"})
		case errors.As(err, &authErr):
			l.Info("Login rejected", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
		}
		l.Error("Login failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to sign in"})
	}

	resp := LoginResponse{Token: id.Token, ExpiresAt: id.ExpiresAt, State: cl.Reconciler.State().String()}
	if s, ok := cl.Reconciler.Current(); ok {
		resp.Session = &s
	}
	return c.JSON(resp)
}

// HandleLogout signs out and drops the client instance.
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *Handler) HandleLogout(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	if err := h.registry.Logout(c.UserContext(), auth.Token(c)); err != nil {
		if errors.Is(err, ErrUnknownClient) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active session"})
		}
		l.Error("Logout failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to sign out"})
	}
	return c.JSON(fiber.Map{"status": session.StateAnonymous.String()})
}

// HandleMe returns the live session.
// @Summary Current Session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 404 {object} SessionResponse
// @Router /me [get]
func (h *Handler) HandleMe(c *fiber.Ctx) error {
	rec := client(c).Reconciler
	s, ok := rec.Current()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(SessionResponse{State: rec.State().String()})
	}
	return c.JSON(SessionResponse{State: rec.State().String(), Session: &s})
}

// HandleUpdateProfile saves a profile edit.
// @Summary Update Profile
// @Tags profile
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param name formData string true "Display name"
// @Param photo formData file false "Profile photo (image, at most 5MB)"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ProfileResponse
// @Failure 409 {object} ProfileResponse
// @Failure 502 {object} ProfileResponse
// @Router /profile [put]
func (h *Handler) HandleUpdateProfile(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	cl := client(c)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ProfileResponse{Message: editor.Message(&editor.ValidationError{Field: "form", Reason: err.Error()})})
	}

	edit := editor.Edit{}
	if names := form.Value["name"]; len(names) > 0 {
		edit.Name = names[0]
	}
	if files := form.File["photo"]; len(files) > 0 {
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			l.Error("Failed to open uploaded photo", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(ProfileResponse{Message: editor.Message(&profile.UploadError{Reason: "unreadable upload", Err: err})})
		}
		defer f.Close()
		edit.Photo = &editor.Photo{Reader: f, Size: fh.Size, ContentType: fh.Header.Get(fiber.HeaderContentType)}
	}

	res, err := cl.Editor.Save(c.UserContext(), edit)
	if err != nil {
		resp := ProfileResponse{Message: editor.Message(err)}
		if s, ok := cl.Reconciler.Current(); ok {
			resp.Session = &s
		}
		return c.Status(statusFor(err)).JSON(resp)
	}

	return c.JSON(ProfileResponse{Message: res.Notice.Text, Session: &res.Session, Notice: &res.Notice})
}

// statusFor maps an editor error to an HTTP status.
func statusFor(err error) int {
	var (
		validationErr *editor.ValidationError
		uploadErr     *profile.UploadError
		storeErr      *profile.StoreError
	)
	switch {
	case errors.Is(err, editor.ErrSaveInProgress):
		return fiber.StatusConflict
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrNoSession):
		return fiber.StatusNotFound
	case errors.As(err, &uploadErr), errors.As(err, &storeErr):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
