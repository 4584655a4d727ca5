// Package auth protects routes with either a static API key or a bearer token.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the operator API key.
const APIKeyHeader = "X-API-Key"

// PrincipalKey is the locals key holding what a bearer validator resolved.
const PrincipalKey = "principal"

// Config configures API key protection.
type Config struct {
	// ApiKey is the expected key. An empty key disables the check.
	ApiKey string
}

// New returns middleware rejecting requests without the configured API key.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.ApiKey == "" {
			return c.Next()
		}
		key := c.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.ApiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
		}
		return c.Next()
	}
}

// Validator resolves a bearer token into a principal.
type Validator func(ctx context.Context, token string) (any, error)

// Bearer returns middleware that validates the Authorization bearer token and
// stores the resolved principal and raw token in the request locals.
func Bearer(validate Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		principal, err := validate(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		c.Locals(PrincipalKey, principal)
		c.Locals(tokenKey, token)
		return c.Next()
	}
}

const tokenKey = "bearer_token"

// Token returns the bearer token accepted for this request.
func Token(c *fiber.Ctx) string {
	s, _ := c.Locals(tokenKey).(string)
	return s
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
