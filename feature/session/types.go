package session

import (
	"errors"
	"time"

	"membership-portal/feature/profile"
)

// State is the reconciler's position in the session state machine.
type State int

const (
	// StateUnresolved means the identity is signed in but no profile could be materialized.
	StateUnresolved State = iota
	// StateLoading means an identity transition is being resolved.
	StateLoading
	// StateAuthenticated means a Session is live.
	StateAuthenticated
	// StateAnonymous means signed out.
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

var (
	// ErrNoSession is returned by operations that need a live Session.
	ErrNoSession = errors.New("no user logged in")
	// ErrProfileUnavailable means neither store holds a profile for the signed-in identity.
	ErrProfileUnavailable = errors.New("profile unavailable in relational and legacy stores")
	// ErrInvalidRole is returned by Login for roles outside the fixed enumeration.
	ErrInvalidRole = errors.New("invalid role")
	// ErrClosed is returned by Flush once the reconciler has been closed.
	ErrClosed = errors.New("session reconciler closed")
)

// Session is the logged-in user.
type Session struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	PhotoURL  string       `json:"photoUrl,omitempty"`
	Role      profile.Role `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt *time.Time   `json:"updatedAt,omitempty"`
}

// Update is a partial change to the editable Session fields.
// An empty Name and a nil PhotoURL leave the fields unchanged.
type Update struct {
	Name     string
	PhotoURL *string
}

func fromRecord(rec *profile.Record) *Session {
	s := &Session{
		ID:        rec.ID,
		Email:     rec.Email,
		Name:      rec.Name,
		PhotoURL:  rec.Photo(),
		Role:      rec.Role,
		CreatedAt: rec.CreatedAt,
	}
	if rec.UpdatedAt != nil {
		t := *rec.UpdatedAt
		s.UpdatedAt = &t
	}
	return s
}

func (s *Session) clone() Session {
	c := *s
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}
