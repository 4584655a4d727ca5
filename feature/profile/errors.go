package profile

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no profile record exists for the requested id.
var ErrNotFound = errors.New("profile not found")

// StoreError reports a constraint or connectivity failure of a profile store.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("profile store: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// UploadError reports a rejected or failed profile photo upload.
type UploadError struct {
	OwnerID string
	Reason  string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload photo for %s: %s: %v", e.OwnerID, e.Reason, e.Err)
	}
	return fmt.Sprintf("upload photo for %s: %s", e.OwnerID, e.Reason)
}

func (e *UploadError) Unwrap() error { return e.Err }

// MirrorError reports that the authoritative write succeeded but the legacy
// mirror write did not.
type MirrorError struct {
	ID  string
	Err error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirror profile %s to legacy store: %v", e.ID, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }
