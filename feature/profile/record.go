package profile

import (
	"strings"
	"time"
)

// Record is a row of the users table.
type Record struct {
	ID        string     `gorm:"column:id;primaryKey;size:128"`
	Email     string     `gorm:"column:email;size:255;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;size:255;not null"`
	PhotoURL  *string    `gorm:"column:photo_url;size:1024"`
	Role      Role       `gorm:"column:role;size:16;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

// DefaultDisplayName is used when neither a name nor an email local part is available.
const DefaultDisplayName = "User"

// DisplayName resolves the stored display name: the trimmed name, else the
// local part of email, else DefaultDisplayName.
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local != "" {
		return local
	}
	return DefaultDisplayName
}

// TableName overrides the table name.
func (Record) TableName() string {
	return "users"
}

// Columns lists the users table columns the portal depends on.
var Columns = []string{"id", "email", "name", "photo_url", "role", "created_at", "updated_at"}

// Photo returns the photo URL or "" when none is set.
func (r Record) Photo() string {
	if r.PhotoURL == nil {
		return ""
	}
	return *r.PhotoURL
}
