package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"membership-portal/core/database"
	"membership-portal/feature/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCfg = identity.Config{Secret: "test-secret", Issuer: "portal-test", TokenTTLMinutes: 60}

func setupDirectory(t *testing.T) *identity.Directory {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, identity.Migrate(db))
	return identity.NewDirectory(db, 4)
}

func setupProvider(t *testing.T) (*identity.LocalProvider, *identity.Directory) {
	t.Helper()
	dir := setupDirectory(t)
	tokens, err := identity.NewTokens(testCfg, nil)
	require.NoError(t, err)
	return identity.NewLocalProvider(dir, tokens, zap.NewNop()), dir
}

type recorder struct {
	mu     sync.Mutex
	events []*identity.Identity
}

func (r *recorder) listen(id *identity.Identity) {
	r.mu.Lock()
	r.events = append(r.events, id)
	r.mu.Unlock()
}

func (r *recorder) all() []*identity.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*identity.Identity(nil), r.events...)
}

func TestDirectory_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	dir := setupDirectory(t)

	cred, err := dir.Register(ctx, "  Ada@Club.org ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ada@club.org", cred.Email)
	assert.NotEqual(t, "pw", cred.PasswordHash)

	_, err = dir.Register(ctx, "ada@club.org", "other")
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	got, err := dir.Authenticate(ctx, "ADA@club.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, cred.ID, got.ID)

	_, err = dir.Authenticate(ctx, "ada@club.org", "wrong")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = dir.Authenticate(ctx, "nobody@club.org", "pw")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestTokens_IssueVerify(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens, err := identity.NewTokens(testCfg, clock)
	require.NoError(t, err)

	raw, expires, err := tokens.Issue("sub-1", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id.Subject)
	assert.Equal(t, "a@x.com", id.Email)

	now = now.Add(2 * time.Hour)
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	other, err := identity.NewTokens(identity.Config{Secret: "other", Issuer: "portal-test"}, nil)
	require.NoError(t, err)
	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = identity.NewTokens(identity.Config{}, nil)
	assert.Error(t, err)
}

func TestLocalProvider_SignInNotifies(t *testing.T) {
	ctx := context.Background()
	p, dir := setupProvider(t)
	_, err := dir.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)

	id, err := p.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, id.Token)

	require.NoError(t, p.SignOut(ctx))

	events := rec.all()
	require.Len(t, events, 3)
	assert.Nil(t, events[0], "initial state is reported on registration")
	require.NotNil(t, events[1])
	assert.Equal(t, id.Subject, events[1].Subject)
	assert.Nil(t, events[2])
	assert.Nil(t, p.Current())
}

func TestLocalProvider_SignInFailure(t *testing.T) {
	p, _ := setupProvider(t)
	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)

	_, err := p.SignIn(context.Background(), "a@x.com", "pw")
	var authErr *identity.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))
	assert.Len(t, rec.all(), 1, "failed sign-in does not transition")
}

func TestLocalProvider_Restore(t *testing.T) {
	ctx := context.Background()
	p, dir := setupProvider(t)
	_, err := dir.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	id, err := p.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	fresh, _ := setupProvider(t)
	rec := &recorder{}
	fresh.OnAuthStateChange(rec.listen)

	restored, err := fresh.Restore(ctx, id.Token)
	require.NoError(t, err)
	assert.Equal(t, id.Subject, restored.Subject)
	assert.Equal(t, id.Subject, fresh.Current().Subject)
	assert.Len(t, rec.all(), 2)

	_, err = fresh.Restore(ctx, "garbage")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestLocalProvider_Unsubscribe(t *testing.T) {
	p, _ := setupProvider(t)
	rec := &recorder{}
	unsubscribe := p.OnAuthStateChange(rec.listen)
	unsubscribe()
	unsubscribe()

	require.NoError(t, p.SignOut(context.Background()))
	assert.Len(t, rec.all(), 1)
}
