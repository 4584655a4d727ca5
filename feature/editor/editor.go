package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"membership-portal/core/clock"
	"membership-portal/feature/profile"
	"membership-portal/feature/session"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Sessions is the live session the editor reads and refreshes.
// *session.Reconciler implements it.
type Sessions interface {
	Current() (session.Session, bool)
	UpdateProfile(ctx context.Context, u session.Update) error
}

// Photo is a newly selected profile photo.
type Photo struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// Edit is the editable subset of a profile. Email and role are not editable.
type Edit struct {
	Name  string
	Photo *Photo
}

// Notice is the transient success notification.
type Notice struct {
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Visible reports whether the notice should still be shown at now.
func (n Notice) Visible(now time.Time) bool {
	return n.Text != "" && now.Before(n.ExpiresAt)
}

// Result is the outcome of a successful save.
type Result struct {
	Session session.Session `json:"session"`
	Notice  Notice          `json:"notice"`
}

type editForm struct {
	Name string `validate:"required"`
}

type photoForm struct {
	ContentType string `validate:"required,startswith=image/"`
}

// Editor runs profile edits for one client instance.
type Editor struct {
	sessions Sessions
	store    profile.Store
	clock    clock.Clock
	logger   *zap.Logger
	config   Config

	validate *validator.Validate
	inFlight *semaphore.Weighted
}

// New creates an Editor.
func New(sessions Sessions, store profile.Store, clk clock.Clock, cfg Config, logger *zap.Logger) *Editor {
	if clk == nil {
		clk = clock.System{}
	}
	return &Editor{
		sessions: sessions,
		store:    store,
		clock:    clk,
		logger:   logger,
		config:   cfg,
		validate: validator.New(),
		inFlight: semaphore.NewWeighted(1),
	}
}

// Save validates and persists edit, then refreshes the live session.
// A call made while another save is outstanding fails with ErrSaveInProgress
// without touching any store.
func (e *Editor) Save(ctx context.Context, edit Edit) (*Result, error) {
	if !e.inFlight.TryAcquire(1) {
		return nil, ErrSaveInProgress
	}
	defer e.inFlight.Release(1)

	res, err := e.save(ctx, edit)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			e.logger.Debug("Rejected profile edit", zap.String("field", validationErr.Field), zap.String("reason", validationErr.Reason))
		} else {
			e.logger.Error("Failed to save profile", zap.Error(err))
		}
		return nil, err
	}
	return res, nil
}

func (e *Editor) save(ctx context.Context, edit Edit) (*Result, error) {
	name := strings.TrimSpace(edit.Name)
	if err := e.check(name, edit.Photo); err != nil {
		return nil, err
	}

	current, ok := e.sessions.Current()
	if !ok {
		return nil, session.ErrNoSession
	}

	photoURL := current.PhotoURL
	if edit.Photo != nil {
		url, err := e.store.UploadImage(ctx, current.ID, edit.Photo.Reader, edit.Photo.Size, edit.Photo.ContentType)
		if err != nil {
			var uploadErr *profile.UploadError
			if !errors.As(err, &uploadErr) {
				err = &profile.UploadError{OwnerID: current.ID, Reason: "upload failed", Err: err}
			}
			return nil, err
		}
		photoURL = url
	}

	now := e.clock.Now()
	rec := profile.Record{
		ID:        current.ID,
		Email:     current.Email,
		Name:      name,
		Role:      current.Role,
		CreatedAt: current.CreatedAt,
		UpdatedAt: &now,
	}
	if photoURL != "" {
		rec.PhotoURL = &photoURL
	}
	if err := e.store.UpsertProfile(ctx, rec); err != nil {
		var storeErr *profile.StoreError
		if !errors.As(err, &storeErr) {
			err = &profile.StoreError{Op: "upsert", ID: current.ID, Err: err}
		}
		return nil, err
	}

	update := session.Update{Name: name}
	if photoURL != "" {
		update.PhotoURL = &photoURL
	}
	if err := e.sessions.UpdateProfile(ctx, update); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	refreshed, ok := e.sessions.Current()
	if !ok || refreshed.ID != current.ID {
		refreshed = current
		refreshed.Name = name
		refreshed.PhotoURL = photoURL
		refreshed.UpdatedAt = &now
	}

	return &Result{
		Session: refreshed,
		Notice:  Notice{Text: SuccessText, ExpiresAt: now.Add(e.config.noticeTTL())},
	}, nil
}

// check validates the trimmed name and the optional photo.
func (e *Editor) check(name string, photo *Photo) error {
	if err := e.validate.Struct(editForm{Name: name}); err != nil {
		return &ValidationError{Field: FieldName, Reason: "must not be empty"}
	}
	if photo == nil {
		return nil
	}

	limit := e.config.maxImageBytes()
	if err := e.validate.Var(photo.Size, fmt.Sprintf("gt=0,lte=%d", limit)); err != nil {
		return &ValidationError{Field: FieldPhotoSize, Reason: fmt.Sprintf("size %d outside 1..%d bytes", photo.Size, limit)}
	}
	form := photoForm{ContentType: strings.ToLower(strings.TrimSpace(photo.ContentType))}
	if err := e.validate.Struct(form); err != nil || !profile.IsImageType(form.ContentType) {
		return &ValidationError{Field: FieldPhotoType, Reason: fmt.Sprintf("content type %q is not an image", photo.ContentType)}
	}
	return nil
}
