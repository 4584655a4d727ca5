package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Credential is a row of the credentials table.
type Credential struct {
	ID           string    `gorm:"column:id;primaryKey;size:128"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName overrides the table name.
func (Credential) TableName() string {
	return "credentials"
}

// CredentialColumns lists the credentials table columns the provider depends on.
var CredentialColumns = []string{"id", "email", "password_hash", "created_at"}

// Authenticator checks an email/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Credential, error)
}

// Directory stores credentials in the relational store.
type Directory struct {
	db   *gorm.DB
	cost int
}

// NewDirectory creates a Directory hashing new passwords with cost.
func NewDirectory(db *gorm.DB, cost int) *Directory {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Directory{db: db, cost: cost}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a credential for email.
func (d *Directory) Register(ctx context.Context, email, password string) (*Credential, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	var count int64
	if err := d.db.WithContext(ctx).Model(&Credential{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing credential: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.db.WithContext(ctx).Create(cred).Error; err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return cred, nil
}

// Authenticate returns the credential for email when password matches.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	var cred Credential
	err := d.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Take(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &cred, nil
}

// Migrate creates or updates the credentials table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Credential{})
}
