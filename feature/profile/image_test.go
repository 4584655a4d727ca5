package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageType(t *testing.T) {
	assert.True(t, IsImageType("image/png"))
	assert.True(t, IsImageType(" Image/JPEG "))
	assert.False(t, IsImageType("application/pdf"))
	assert.False(t, IsImageType(""))
	assert.False(t, IsImageType("image/png/../../u2/avatar.png"))
}

func TestAvatarKey(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		ok          bool
	}{
		{"image/png", "u1/avatar.png", true},
		{"image/jpeg", "u1/avatar.jpg", true},
		{"image/jpeg; charset=binary", "u1/avatar.jpg", true},
		{"image/svg+xml", "u1/avatar.svg", true},
		{"image/x-icon", "u1/avatar.x-icon", true},
		{"image/", "", false},
		{"image/png/../../u2/avatar.png", "", false},
		{"image/x/../../victim/avatar", "", false},
		{"image/..", "", false},
		{"image/a.b", "", false},
		{"image/x-", "", false},
		{"text/plain", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			key, ok := AvatarKey("u1", tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, key)
		})
	}
}
