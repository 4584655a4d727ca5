package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"membership-portal/core/clock"
	"membership-portal/feature/identity"
	"membership-portal/feature/legacy"
	"membership-portal/feature/profile"

	"go.uber.org/zap"
)

// Profiles is the profile persistence the reconciler depends on.
// *profile.Repository implements it.
type Profiles interface {
	Fetch(ctx context.Context, id string) (*profile.Record, error)
	FetchLegacy(ctx context.Context, id string) (*legacy.Document, error)
	Save(ctx context.Context, rec profile.Record) error
	Mirror(ctx context.Context, id string, doc legacy.Document) error
}

// event is an identity transition, a refresh of the current identity, or a
// Flush barrier.
type event struct {
	identity *identity.Identity
	refresh  bool
	barrier  chan struct{}
}

// Reconciler maintains the live Session of one client instance.
type Reconciler struct {
	provider identity.Provider
	profiles Profiles
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.RWMutex
	state   State
	session *Session
	err     error

	// observed is the last identity reported by the provider. Owned by run.
	observed *identity.Identity
	// logins counts Login calls whose profile write has not finished.
	logins atomic.Int32

	qmu   sync.Mutex
	queue []event
	wake  chan struct{}

	startOnce   sync.Once
	closeOnce   sync.Once
	stop        chan struct{}
	stopped     chan struct{}
	unsubscribe func()
}

// NewReconciler creates a Reconciler in StateLoading. Call Start to begin
// observing the provider.
func NewReconciler(provider identity.Provider, profiles Profiles, clk clock.Clock, logger *zap.Logger) *Reconciler {
	if clk == nil {
		clk = clock.System{}
	}
	return &Reconciler{
		provider: provider,
		profiles: profiles,
		clock:    clk,
		logger:   logger,
		state:    StateLoading,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start subscribes to the provider and processes transitions until ctx is done
// or Close is called. Start is idempotent.
func (r *Reconciler) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
		r.unsubscribe = r.provider.OnAuthStateChange(func(id *identity.Identity) {
			r.enqueue(event{identity: id})
		})
	})
}

// Close stops processing and unsubscribes from the provider.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		r.startOnce.Do(func() { close(r.stopped) })
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		<-r.stopped
	})
}

// Flush blocks until every transition queued before the call has been resolved.
func (r *Reconciler) Flush(ctx context.Context) error {
	done := make(chan struct{})
	r.enqueue(event{barrier: done})
	select {
	case <-done:
		return nil
	case <-r.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns a copy of the live Session.
func (r *Reconciler) Current() (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return Session{}, false
	}
	return r.session.clone(), true
}

// State returns the current state.
func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Err returns the error of the last failed resolution, or nil.
func (r *Reconciler) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Login signs in through the provider and writes the profile through the
// repository. The Session itself is materialized by the resulting auth-state
// transition, not by Login.
func (r *Reconciler) Login(ctx context.Context, email, password string, role profile.Role, name string) error {
	if role == "" {
		role = profile.RoleMember
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	r.logins.Add(1)
	id, err := r.provider.SignIn(ctx, email, password)
	if err != nil {
		r.logins.Add(-1)
		return err
	}
	// The sign-in transition may have been resolved before the write landed.
	defer func() {
		r.logins.Add(-1)
		r.enqueue(event{refresh: true})
	}()

	rec, err := r.loginRecord(ctx, id, role, name)
	if err != nil {
		return err
	}

	if err := r.profiles.Save(ctx, rec); err != nil && !profile.IsMirrorOnly(err) {
		r.logger.Error("Failed to persist profile on login", zap.String("id", id.Subject), zap.Error(err))
		return err
	}
	return nil
}

// loginRecord builds the record written on login. Existing records keep their
// email, role and creation time; an explicit name replaces the stored one.
func (r *Reconciler) loginRecord(ctx context.Context, id *identity.Identity, role profile.Role, name string) (profile.Record, error) {
	now := r.clock.Now()
	explicit := strings.TrimSpace(name)

	existing, err := r.profiles.Fetch(ctx, id.Subject)
	switch {
	case err == nil:
		rec := *existing
		if explicit != "" {
			rec.Name = explicit
		}
		rec.UpdatedAt = &now
		return rec, nil
	case !errors.Is(err, profile.ErrNotFound):
		return profile.Record{}, err
	}

	if doc, err := r.profiles.FetchLegacy(ctx, id.Subject); err == nil {
		rec := profile.FromDocument(id.Subject, *doc)
		if rec.Email == "" {
			rec.Email = id.Email
		}
		if !rec.Role.Valid() {
			rec.Role = role
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if explicit != "" || rec.Name == "" {
			rec.Name = profile.DisplayName(name, id.Email)
		}
		rec.UpdatedAt = &now
		return rec, nil
	} else if !errors.Is(err, legacy.ErrNotFound) {
		r.logger.Warn("Legacy lookup failed during login", zap.String("id", id.Subject), zap.Error(err))
	}

	return profile.Record{
		ID:        id.Subject,
		Email:     id.Email,
		Name:      profile.DisplayName(name, id.Email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: &now,
	}, nil
}

// Logout signs out through the provider. The Session is cleared by the
// resulting auth-state transition.
func (r *Reconciler) Logout(ctx context.Context) error {
	return r.provider.SignOut(ctx)
}

// UpdateProfile mirrors a name change to the legacy store and merges u into
// the live Session without re-reading the relational store. Callers persist
// relational changes first.
func (r *Reconciler) UpdateProfile(ctx context.Context, u Update) error {
	current, ok := r.Current()
	if !ok {
		return ErrNoSession
	}

	now := r.clock.Now()
	if u.Name != "" {
		err := r.profiles.Mirror(ctx, current.ID, legacy.Document{Name: u.Name, UpdatedAt: now})
		if err != nil && !profile.IsMirrorOnly(err) {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.ID != current.ID {
		return ErrNoSession
	}
	if u.Name != "" {
		r.session.Name = u.Name
	}
	if u.PhotoURL != nil {
		r.session.PhotoURL = *u.PhotoURL
	}
	r.session.UpdatedAt = &now
	return nil
}

func (r *Reconciler) enqueue(ev event) {
	r.qmu.Lock()
	r.queue = append(r.queue, ev)
	r.qmu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-r.wake:
		}

		r.qmu.Lock()
		batch := r.queue
		r.queue = nil
		r.qmu.Unlock()

		r.process(ctx, batch)
	}
}

// process handles a batch in order. Consecutive transitions collapse into the
// last one; a barrier is released only after the transitions before it are
// resolved. A refresh resolves the last observed identity again.
func (r *Reconciler) process(ctx context.Context, batch []event) {
	pending := false
	for _, ev := range batch {
		if ev.barrier != nil {
			if pending {
				r.apply(ctx, r.observed)
				pending = false
			}
			close(ev.barrier)
			continue
		}
		if pending {
			r.logger.Debug("Skipping superseded identity transition")
		}
		if !ev.refresh {
			r.observed = ev.identity
		}
		pending = true
	}
	if pending {
		r.apply(ctx, r.observed)
	}
}

func (r *Reconciler) apply(ctx context.Context, id *identity.Identity) {
	if id == nil {
		r.set(StateAnonymous, nil, nil)
		return
	}

	r.mu.Lock()
	r.state = StateLoading
	r.mu.Unlock()

	s, err := r.resolve(ctx, id)
	if errors.Is(err, ErrProfileUnavailable) && r.logins.Load() > 0 {
		// Login refreshes once its profile write finishes.
		r.logger.Debug("Profile not written yet; waiting for login", zap.String("id", id.Subject))
		return
	}
	if err != nil {
		r.logger.Error("Failed to resolve session", zap.String("id", id.Subject), zap.Error(err))
		r.set(StateUnresolved, nil, err)
		return
	}
	r.set(StateAuthenticated, s, nil)
}

func (r *Reconciler) set(state State, s *Session, err error) {
	r.mu.Lock()
	r.state = state
	r.session = s
	r.err = err
	r.mu.Unlock()
}

// resolve materializes the Session for id from the relational store, falling
// back to the legacy document store.
func (r *Reconciler) resolve(ctx context.Context, id *identity.Identity) (*Session, error) {
	rec, err := r.profiles.Fetch(ctx, id.Subject)
	switch {
	case err == nil:
		return fromRecord(rec), nil
	case errors.Is(err, profile.ErrNotFound):
		r.logger.Debug("Profile missing in relational store; trying legacy store", zap.String("id", id.Subject))
	default:
		r.logger.Warn("Relational profile lookup failed; trying legacy store", zap.String("id", id.Subject), zap.Error(err))
	}

	doc, legacyErr := r.profiles.FetchLegacy(ctx, id.Subject)
	if legacyErr != nil {
		if errors.Is(legacyErr, legacy.ErrNotFound) {
			return nil, ErrProfileUnavailable
		}
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, errors.Join(err, legacyErr))
	}

	role := profile.Role(doc.Role)
	if !role.Valid() {
		r.logger.Warn("Legacy profile has unknown role; using Member", zap.String("id", id.Subject), zap.String("role", doc.Role))
		role = profile.RoleMember
	}
	s := &Session{
		ID:        id.Subject,
		Email:     id.Email,
		Name:      doc.Name,
		PhotoURL:  doc.PhotoURL,
		Role:      role,
		CreatedAt: doc.CreatedAt,
	}
	if !doc.UpdatedAt.IsZero() {
		t := doc.UpdatedAt
		s.UpdatedAt = &t
	}
	return s, nil
}
