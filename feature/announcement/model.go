package announcement

import (
	"time"
)

// Priority orders announcements on the board.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank returns the sort rank of p; lower ranks are listed first.
// Unknown priorities sort after Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Announcement is a single board entry.
type Announcement struct {
	ID        string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Content   string    `gorm:"column:content;type:text" json:"content"`
	Priority  Priority  `gorm:"column:priority;size:16;not null;default:Medium" json:"priority"`
	Venue     *string   `gorm:"column:venue;size:255" json:"venue,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
}

// TableName returns the announcements table name.
func (Announcement) TableName() string {
	return "announcements"
}

// Columns lists the columns the announcements table must have.
var Columns = []string{"id", "title", "content", "priority", "venue", "created_at"}
