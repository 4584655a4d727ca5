package editor

import (
	"errors"
	"fmt"

	"membership-portal/feature/profile"
	"membership-portal/feature/session"
)

// ErrSaveInProgress is returned when a save is attempted while another is outstanding.
var ErrSaveInProgress = errors.New("profile save already in progress")

// Fields reported by ValidationError.
const (
	FieldName      = "name"
	FieldPhotoSize = "photo.size"
	FieldPhotoType = "photo.contentType"
)

// ValidationError is a local precondition failure. No store was called.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// User-facing messages.
const (
	SuccessText           = "Profile updated successfully!"
	msgNameEmpty          = "Name cannot be empty"
	msgImageTooLarge      = "Image size should be less than 5MB"
	msgImageType          = "Please select a valid image file"
	msgUploadFailed       = "Failed to upload photo"
	msgUpdateFailed       = "Failed to update profile"
	msgSaveInProgress     = "A save is already in progress"
	msgNoSession          = "No user logged in"
	msgInvalidEditRequest = "Invalid profile update"
)

// Message converts a workflow error into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return SuccessText
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Field {
		case FieldName:
			return msgNameEmpty
		case FieldPhotoSize:
			return msgImageTooLarge
		case FieldPhotoType:
			return msgImageType
		}
		return msgInvalidEditRequest
	}

	var uploadErr *profile.UploadError
	switch {
	case errors.As(err, &uploadErr):
		return msgUploadFailed
	case errors.Is(err, ErrSaveInProgress):
		return msgSaveInProgress
	case errors.Is(err, session.ErrNoSession):
		return msgNoSession
	}
	return msgUpdateFailed
}
