package editor

import (
	"time"

	"membership-portal/feature/profile"
)

// Config holds profile editing settings.
type Config struct {
	// MaxImageBytes is the largest accepted photo.
	MaxImageBytes int64 `mapstructure:"max_image_bytes" default:"5242880"`
	// NoticeSeconds is how long the success notice stays visible.
	NoticeSeconds int `mapstructure:"notice_seconds" default:"3"`
}

func (c Config) maxImageBytes() int64 {
	if c.MaxImageBytes <= 0 || c.MaxImageBytes > profile.MaxImageBytes {
		return profile.MaxImageBytes
	}
	return c.MaxImageBytes
}

func (c Config) noticeTTL() time.Duration {
	if c.NoticeSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.NoticeSeconds) * time.Second
}
