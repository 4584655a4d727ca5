package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies identity tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer from cfg.
func NewTokens(cfg Config, now func() time.Time) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("identity: token secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: cfg.TokenTTL(), now: now}, nil
}

// Issue returns a signed token for subject.
func (t *Tokens) Issue(subject, email string) (string, time.Time, error) {
	issued := t.now()
	expires := issued.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign identity token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses raw and returns the identity it carries.
func (t *Tokens) Verify(raw string) (*Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Identity{
		Subject:   c.Subject,
		Email:     c.Email,
		Token:     raw,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}
