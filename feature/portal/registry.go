package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"membership-portal/core/clock"
	"membership-portal/feature/editor"
	"membership-portal/feature/identity"
	"membership-portal/feature/profile"
	"membership-portal/feature/session"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownClient is returned when a token has no client instance.
	ErrUnknownClient = errors.New("no client instance for token")
	// ErrSignedOut is returned for tokens whose session was logged out.
	ErrSignedOut = errors.New("token was signed out")
)

// resolveTimeout bounds waiting for the reconciler after login or restore.
const resolveTimeout = 10 * time.Second

// Client is one signed-in client instance.
type Client struct {
	Provider   *identity.LocalProvider
	Reconciler *session.Reconciler
	Editor     *editor.Editor

	cancel context.CancelFunc
}

func (c *Client) close() {
	c.Reconciler.Close()
	c.cancel()
}

// Deps are the shared collaborators of every client instance.
type Deps struct {
	Directory identity.Authenticator
	Tokens    *identity.Tokens
	Profiles  *profile.Repository
	Clock     clock.Clock
	Editor    editor.Config
	Logger    *zap.Logger
}

// Registry owns the live client instances.
type Registry struct {
	deps Deps

	mu      sync.Mutex
	clients map[string]*Client
	revoked map[string]time.Time
	restore singleflight.Group
}

// NewRegistry creates an empty Registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{deps: deps, clients: make(map[string]*Client), revoked: make(map[string]time.Time)}
}

func (r *Registry) newClient() *Client {
	logger := r.deps.Logger.With(zap.String("component", "client"))
	provider := identity.NewLocalProvider(r.deps.Directory, r.deps.Tokens, logger)
	rec := session.NewReconciler(provider, r.deps.Profiles, r.deps.Clock, logger)

	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)

	return &Client{
		Provider:   provider,
		Reconciler: rec,
		Editor:     editor.New(rec, r.deps.Profiles.Store(), r.deps.Clock, r.deps.Editor, logger),
		cancel:     cancel,
	}
}

// Login signs in on a fresh client instance and registers it under the issued token.
func (r *Registry) Login(ctx context.Context, email, password string, role profile.Role, name string) (*identity.Identity, *Client, error) {
	c := r.newClient()
	if err := c.Reconciler.Login(ctx, email, password, role, name); err != nil {
		c.close()
		return nil, nil, err
	}

	id := c.Provider.Current()
	if id == nil {
		c.close()
		return nil, nil, session.ErrNoSession
	}
	if err := flush(ctx, c); err != nil {
		c.close()
		return nil, nil, err
	}

	r.mu.Lock()
	prev := r.clients[id.Token]
	r.clients[id.Token] = c
	r.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	return id, c, nil
}

// Client returns the instance for token, restoring one from the token when the
// registry has none.
func (r *Registry) Client(ctx context.Context, token string) (*Client, error) {
	if c, ok := r.lookup(token); ok {
		return c, nil
	}
	if r.isRevoked(token) {
		return nil, ErrSignedOut
	}

	v, err, _ := r.restore.Do(token, func() (any, error) {
		if c, ok := r.lookup(token); ok {
			return c, nil
		}
		c := r.newClient()
		if _, err := c.Provider.Restore(ctx, token); err != nil {
			c.close()
			return nil, err
		}
		if err := flush(ctx, c); err != nil {
			c.close()
			return nil, err
		}
		r.mu.Lock()
		r.clients[token] = c
		r.mu.Unlock()
		r.deps.Logger.Info("Restored client instance from token")
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// Logout signs the instance for token out and removes it.
func (r *Registry) Logout(ctx context.Context, token string) error {
	r.mu.Lock()
	c, ok := r.clients[token]
	delete(r.clients, token)
	if ok {
		r.revokeLocked(token, c.Provider.Current())
	}
	r.mu.Unlock()
	if !ok {
		return ErrUnknownClient
	}
	defer c.close()

	if err := c.Reconciler.Logout(ctx); err != nil {
		return err
	}
	return flush(ctx, c)
}

// Len returns the number of live client instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close tears down every client instance.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (r *Registry) lookup(token string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[token]
	return c, ok
}

func (r *Registry) isRevoked(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[token]
	return ok
}

// revokeLocked records token as signed out until it expires and prunes
// revocations that have expired.
func (r *Registry) revokeLocked(token string, id *identity.Identity) {
	now := r.deps.Clock.Now()
	for t, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, t)
		}
	}
	exp := now.Add(r.deps.Tokens.TTL())
	if id != nil {
		exp = id.ExpiresAt
	}
	r.revoked[token] = exp
}

func flush(ctx context.Context, c *Client) error {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	if err := c.Reconciler.Flush(ctx); err != nil {
		return fmt.Errorf("wait for session: %w", err)
	}
	return nil
}
