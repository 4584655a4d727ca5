package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"membership-portal/core/clock"
	"membership-portal/core/database"
	"membership-portal/core/storage"
	"membership-portal/core/storage/mocks"
	"membership-portal/feature/identity"
	"membership-portal/feature/legacy"
	"membership-portal/feature/profile"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var epoch = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

type env struct {
	provider *identity.LocalProvider
	dir      *identity.Directory
	repo     *profile.Repository
	legacy   *legacy.RedisStore
	redis    *miniredis.Miniredis
	clock    *clock.Manual
	rec      *Reconciler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, identity.Migrate(db))
	require.NoError(t, profile.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := identity.NewTokens(identity.Config{Secret: "s", Issuer: "test"}, nil)
	require.NoError(t, err)

	dir := identity.NewDirectory(db, 4)
	provider := identity.NewLocalProvider(dir, tokens, zap.NewNop())
	docs := legacy.NewRedisStore(client, "users:")
	store := profile.NewGormStore(db, new(mocks.Client), storage.Config{Bucket: "b"}, zap.NewNop())
	repo := profile.NewRepository(store, docs, zap.NewNop())
	clk := clock.NewManual(epoch)

	rec := NewReconciler(provider, repo, clk, zap.NewNop())
	t.Cleanup(rec.Close)

	return &env{provider: provider, dir: dir, repo: repo, legacy: docs, redis: mr, clock: clk, rec: rec}
}

func (e *env) start(t *testing.T) {
	t.Helper()
	e.rec.Start(context.Background())
	e.flush(t)
}

func (e *env) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.rec.Flush(ctx))
}

func (e *env) register(t *testing.T, email string) string {
	t.Helper()
	cred, err := e.dir.Register(context.Background(), email, "pw")
	require.NoError(t, err)
	return cred.ID
}

func TestReconciler_InitialState(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, StateLoading, e.rec.State())

	e.start(t)
	assert.Equal(t, StateAnonymous, e.rec.State())
	_, ok := e.rec.Current()
	assert.False(t, ok)
}

func TestReconciler_LoginMaterializesSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.register(t, "a@x.com")
	e.start(t)

	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleMember, ""))
	e.flush(t)

	require.Equal(t, StateAuthenticated, e.rec.State())
	s, ok := e.rec.Current()
	require.True(t, ok)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "a@x.com", s.Email)
	assert.Equal(t, "a", s.Name, "empty name falls back to the email local part")
	assert.Equal(t, profile.RoleMember, s.Role)
	assert.True(t, epoch.Equal(s.CreatedAt))

	rec, err := e.repo.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Name)

	doc, err := e.legacy.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Name)
	assert.Equal(t, "Member", doc.Role)
}

func TestReconciler_LoginKeepsRoleAndCreation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "a@x.com")
	e.start(t)

	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleCore, "Ada"))
	e.clock.Advance(time.Hour)
	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleEB, ""))
	e.flush(t)

	s, ok := e.rec.Current()
	require.True(t, ok)
	assert.Equal(t, profile.RoleCore, s.Role, "role cannot be escalated by logging in again")
	assert.Equal(t, "Ada", s.Name, "an empty name keeps the stored one")
	assert.True(t, epoch.Equal(s.CreatedAt))
	require.NotNil(t, s.UpdatedAt)
	assert.True(t, epoch.Add(time.Hour).Equal(*s.UpdatedAt))

	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleCore, "Ada Lovelace"))
	e.flush(t)
	s, _ = e.rec.Current()
	assert.Equal(t, "Ada Lovelace", s.Name)
}

func TestReconciler_LoginFailures(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "a@x.com")
	e.start(t)

	err := e.rec.Login(ctx, "a@x.com", "pw", profile.Role("Admin"), "")
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Nil(t, e.provider.Current())

	err = e.rec.Login(ctx, "a@x.com", "nope", profile.RoleMember, "")
	var authErr *identity.AuthError
	assert.ErrorAs(t, err, &authErr)

	e.flush(t)
	assert.Equal(t, StateAnonymous, e.rec.State())
	ids, err := e.legacy.IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReconciler_LoginToleratesMirrorFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.register(t, "a@x.com")
	e.start(t)
	e.redis.Close()

	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleMember, "Ann"))
	e.flush(t)

	s, ok := e.rec.Current()
	require.True(t, ok)
	assert.Equal(t, "Ann", s.Name)
	assert.Equal(t, id, s.ID)
	assert.EqualValues(t, 1, e.repo.MirrorFailures())
}

func TestReconciler_LogoutClearsSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "a@x.com")
	e.start(t)

	require.NoError(t, e.rec.Logout(ctx))
	e.flush(t)
	assert.Equal(t, StateAnonymous, e.rec.State())

	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleMember, ""))
	e.flush(t)
	require.Equal(t, StateAuthenticated, e.rec.State())

	require.NoError(t, e.rec.Logout(ctx))
	e.flush(t)
	assert.Equal(t, StateAnonymous, e.rec.State())
	_, ok := e.rec.Current()
	assert.False(t, ok)
}

func TestReconciler_FallsBackToLegacy(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.register(t, "b@x.com")
	created := epoch.Add(-720 * time.Hour)
	require.NoError(t, e.legacy.Merge(ctx, id, legacy.Document{
		Name: "Bea", Email: "b@x.com", Role: "EC", PhotoURL: "http://cdn/b.png", CreatedAt: created,
	}))
	e.start(t)

	_, err := e.provider.SignIn(ctx, "b@x.com", "pw")
	require.NoError(t, err)
	e.flush(t)

	require.Equal(t, StateAuthenticated, e.rec.State())
	s, _ := e.rec.Current()
	assert.Equal(t, "Bea", s.Name)
	assert.Equal(t, profile.RoleEC, s.Role)
	assert.Equal(t, "http://cdn/b.png", s.PhotoURL)
	assert.True(t, created.Equal(s.CreatedAt))
	assert.Nil(t, s.UpdatedAt)
}

func TestReconciler_LegacyUnknownRoleBecomesMember(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.register(t, "c@x.com")
	require.NoError(t, e.legacy.Merge(ctx, id, legacy.Document{Name: "Cy", Email: "c@x.com", Role: "SuperAdmin"}))
	e.start(t)

	_, err := e.provider.SignIn(ctx, "c@x.com", "pw")
	require.NoError(t, err)
	e.flush(t)

	require.Equal(t, StateAuthenticated, e.rec.State())
	s, _ := e.rec.Current()
	assert.Equal(t, profile.RoleMember, s.Role)
	assert.True(t, s.Role.Valid())
}

func TestReconciler_FirstLoginLogsNoResolveError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	core, logs := observer.New(zap.DebugLevel)
	r := NewReconciler(e.provider, e.repo, e.clock, zap.New(core))
	t.Cleanup(r.Close)
	r.Start(ctx)
	require.NoError(t, r.Flush(ctx))
	e.register(t, "new@x.com")

	require.NoError(t, r.Login(ctx, "new@x.com", "pw", profile.RoleEB, "Nia"))
	require.NoError(t, r.Flush(ctx))

	require.Equal(t, StateAuthenticated, r.State())
	s, _ := r.Current()
	assert.Equal(t, "Nia", s.Name)
	assert.Equal(t, profile.RoleEB, s.Role)
	assert.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestReconciler_LoginInFlightKeepsLoading(t *testing.T) {
	profiles := &countingProfiles{relational: map[string]*profile.Record{}}
	core, logs := observer.New(zap.DebugLevel)
	r := NewReconciler(nil, profiles, clock.NewManual(epoch), zap.New(core))
	ctx := context.Background()

	r.logins.Add(1)
	r.process(ctx, []event{{identity: &identity.Identity{Subject: "u1", Email: "u1@x.com"}}})
	assert.Equal(t, StateLoading, r.State())
	assert.NoError(t, r.Err())
	assert.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())

	profiles.relational["u1"] = &profile.Record{ID: "u1", Name: "Written", Role: profile.RoleMember}
	r.logins.Add(-1)
	r.process(ctx, []event{{refresh: true}})

	require.Equal(t, StateAuthenticated, r.State())
	s, _ := r.Current()
	assert.Equal(t, "Written", s.Name)
}

func TestReconciler_LoginAdoptsLegacyRecord(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.register(t, "b@x.com")
	created := epoch.Add(-720 * time.Hour)
	require.NoError(t, e.legacy.Merge(ctx, id, legacy.Document{Name: "Bea", Email: "b@x.com", Role: "EC", CreatedAt: created}))
	e.start(t)

	require.NoError(t, e.rec.Login(ctx, "b@x.com", "pw", profile.RoleMember, ""))

	rec, err := e.repo.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Bea", rec.Name)
	assert.Equal(t, profile.RoleEC, rec.Role)
	assert.True(t, created.Equal(rec.CreatedAt))
}

func TestReconciler_UnresolvedWhenNoProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "c@x.com")
	e.start(t)

	_, err := e.provider.SignIn(ctx, "c@x.com", "pw")
	require.NoError(t, err)
	e.flush(t)

	assert.Equal(t, StateUnresolved, e.rec.State())
	assert.ErrorIs(t, e.rec.Err(), ErrProfileUnavailable)
	_, ok := e.rec.Current()
	assert.False(t, ok)

	require.NoError(t, e.rec.Logout(ctx))
	e.flush(t)
	assert.NoError(t, e.rec.Err())
}

func TestReconciler_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := e.register(t, "a@x.com")
	e.start(t)

	assert.ErrorIs(t, e.rec.UpdateProfile(ctx, Update{Name: "x"}), ErrNoSession)

	require.NoError(t, e.rec.Login(ctx, "a@x.com", "pw", profile.RoleMember, "Ann"))
	e.flush(t)

	e.clock.Advance(time.Minute)
	photo := "http://cdn/a/avatar.png"
	require.NoError(t, e.rec.UpdateProfile(ctx, Update{Name: "Annie", PhotoURL: &photo}))

	s, _ := e.rec.Current()
	assert.Equal(t, "Annie", s.Name)
	assert.Equal(t, photo, s.PhotoURL)
	require.NotNil(t, s.UpdatedAt)
	assert.True(t, epoch.Add(time.Minute).Equal(*s.UpdatedAt))

	doc, err := e.legacy.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Annie", doc.Name)
	assert.True(t, epoch.Add(time.Minute).Equal(doc.UpdatedAt))

	rec, err := e.repo.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", rec.Name, "relational store is the caller's responsibility")
}

func TestReconciler_FlushAfterClose(t *testing.T) {
	e := newEnv(t)
	e.start(t)
	e.rec.Close()

	assert.ErrorIs(t, e.rec.Flush(context.Background()), ErrClosed)
}

// countingProfiles records which ids were fetched and can fail the relational store.
type countingProfiles struct {
	mu          sync.Mutex
	fetched     []string
	relational  map[string]*profile.Record
	relationErr error
	docs        map[string]*legacy.Document
	onFetch     func(id string)
}

func (c *countingProfiles) Fetch(_ context.Context, id string) (*profile.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = append(c.fetched, id)
	if c.onFetch != nil {
		c.onFetch(id)
	}
	if c.relationErr != nil {
		return nil, c.relationErr
	}
	if rec, ok := c.relational[id]; ok {
		return rec, nil
	}
	return nil, profile.ErrNotFound
}

func (c *countingProfiles) FetchLegacy(_ context.Context, id string) (*legacy.Document, error) {
	if doc, ok := c.docs[id]; ok {
		return doc, nil
	}
	return nil, legacy.ErrNotFound
}

func (c *countingProfiles) Save(context.Context, profile.Record) error { return nil }

func (c *countingProfiles) Mirror(context.Context, string, legacy.Document) error { return nil }

func TestReconciler_TransientRelationalErrorFallsBack(t *testing.T) {
	profiles := &countingProfiles{
		relationErr: &profile.StoreError{Op: "fetch", ID: "u1", Err: errors.New("timeout")},
		docs:        map[string]*legacy.Document{"u1": {Name: "Legacy", Role: "Core"}},
	}
	r := NewReconciler(nil, profiles, clock.NewManual(epoch), zap.NewNop())

	r.apply(context.Background(), &identity.Identity{Subject: "u1", Email: "u1@x.com"})

	require.Equal(t, StateAuthenticated, r.State())
	s, _ := r.Current()
	assert.Equal(t, "Legacy", s.Name)
	assert.Equal(t, "u1@x.com", s.Email)
}

func TestReconciler_LatestTransitionWins(t *testing.T) {
	profiles := &countingProfiles{relational: map[string]*profile.Record{
		"first":  {ID: "first", Name: "First", Role: profile.RoleMember},
		"middle": {ID: "middle", Name: "Middle", Role: profile.RoleMember},
		"second": {ID: "second", Name: "Second", Role: profile.RoleMember},
	}}
	r := NewReconciler(nil, profiles, clock.NewManual(epoch), zap.NewNop())

	r.process(context.Background(), []event{
		{identity: &identity.Identity{Subject: "first"}},
		{identity: nil},
		{identity: &identity.Identity{Subject: "middle"}},
		{identity: &identity.Identity{Subject: "second"}},
	})

	assert.Equal(t, []string{"second"}, profiles.fetched)
	s, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "Second", s.Name)
}

func TestReconciler_BarrierWaitsForEarlierTransition(t *testing.T) {
	profiles := &countingProfiles{relational: map[string]*profile.Record{
		"first":  {ID: "first", Name: "First", Role: profile.RoleMember},
		"second": {ID: "second", Name: "Second", Role: profile.RoleMember},
	}}
	r := NewReconciler(nil, profiles, clock.NewManual(epoch), zap.NewNop())

	barrier := make(chan struct{})
	released := map[string]bool{}
	profiles.onFetch = func(id string) {
		select {
		case <-barrier:
			released[id] = true
		default:
			released[id] = false
		}
	}
	r.process(context.Background(), []event{
		{identity: &identity.Identity{Subject: "first"}},
		{barrier: barrier},
		{identity: nil},
		{identity: &identity.Identity{Subject: "second"}},
	})

	select {
	case <-barrier:
	default:
		t.Fatal("barrier not released")
	}
	assert.Equal(t, []string{"first", "second"}, profiles.fetched)
	assert.Equal(t, map[string]bool{"first": false, "second": true}, released)
	s, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "Second", s.Name)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unresolved", StateUnresolved.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestReconciler_RefreshResolvesObservedIdentity(t *testing.T) {
	profiles := &countingProfiles{relational: map[string]*profile.Record{}}
	r := NewReconciler(nil, profiles, clock.NewManual(epoch), zap.NewNop())
	ctx := context.Background()

	r.process(ctx, []event{{identity: &identity.Identity{Subject: "u1", Email: "u1@x.com"}}})
	require.Equal(t, StateUnresolved, r.State())

	profiles.relational["u1"] = &profile.Record{ID: "u1", Name: "Late", Role: profile.RoleMember}
	r.process(ctx, []event{{refresh: true}})

	require.Equal(t, StateAuthenticated, r.State())
	s, _ := r.Current()
	assert.Equal(t, "Late", s.Name)
	assert.Equal(t, []string{"u1", "u1"}, profiles.fetched)
}
