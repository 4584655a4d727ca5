package profile

import (
	"mime"
	"regexp"
	"strings"
)

// MaxImageBytes is the largest accepted profile photo (5 MiB).
const MaxImageBytes int64 = 5 * 1024 * 1024

var extensionByType = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/avif":    "avif",
	"image/bmp":     "bmp",
	"image/heic":    "heic",
}

// subtypeExtension matches image subtypes usable verbatim as an object key extension.
var subtypeExtension = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsImageType reports whether contentType is an image media type that maps to
// an avatar extension.
func IsImageType(contentType string) bool {
	_, ok := ImageExtension(contentType)
	return ok
}

// ImageExtension returns the file extension used for an image content type.
// Unknown subtypes are used as-is when they are plain alphanumeric tokens;
// anything else, including subtypes carrying path separators, is rejected.
func ImageExtension(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	if ext, ok := extensionByType[mediaType]; ok {
		return ext, true
	}
	sub, ok := strings.CutPrefix(mediaType, "image/")
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(sub, '+'); i >= 0 {
		sub = sub[:i]
	}
	if !subtypeExtension.MatchString(sub) {
		return "", false
	}
	return sub, true
}

// AvatarPrefix is the object key prefix shared by every avatar of ownerID.
func AvatarPrefix(ownerID string) string {
	return ownerID + "/avatar."
}

// AvatarKey returns the object key for ownerID's avatar of the given content
// type, or false when the content type is not an accepted image type.
func AvatarKey(ownerID, contentType string) (string, bool) {
	ext, ok := ImageExtension(contentType)
	if !ok {
		return "", false
	}
	return AvatarPrefix(ownerID) + ext, true
}
