package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Identity is an authenticated subject. A nil *Identity means signed out.
type Identity struct {
	Subject   string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Listener observes auth-state transitions.
type Listener func(*Identity)

// Provider is the identity provider contract the session layer depends on.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn Listener) (unsubscribe func())
}

// LocalProvider holds the auth state of one client instance.
type LocalProvider struct {
	auth   Authenticator
	tokens *Tokens
	logger *zap.Logger

	mu        sync.Mutex
	current   *Identity
	listeners map[int]Listener
	order     []int
	nextID    int
}

// NewLocalProvider creates a signed-out provider.
func NewLocalProvider(auth Authenticator, tokens *Tokens, logger *zap.Logger) *LocalProvider {
	return &LocalProvider{
		auth:      auth,
		tokens:    tokens,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// SignIn authenticates email/password and transitions to signed in.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	cred, err := p.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, &AuthError{Op: "sign in", Err: err}
	}

	token, expires, err := p.tokens.Issue(cred.ID, cred.Email)
	if err != nil {
		return nil, &AuthError{Op: "sign in", Err: err}
	}

	id := &Identity{Subject: cred.ID, Email: cred.Email, Token: token, ExpiresAt: expires}
	p.transition(id)
	p.logger.Info("Signed in", zap.String("subject", id.Subject))
	return id.clone(), nil
}

// Restore verifies a previously issued token and transitions to signed in.
func (p *LocalProvider) Restore(ctx context.Context, token string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AuthError{Op: "restore", Err: err}
	}
	id, err := p.tokens.Verify(token)
	if err != nil {
		return nil, &AuthError{Op: "restore", Err: err}
	}
	p.transition(id)
	return id.clone(), nil
}

// SignOut transitions to signed out. Signing out while signed out still notifies.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &AuthError{Op: "sign out", Err: err}
	}
	p.transition(nil)
	p.logger.Info("Signed out")
	return nil
}

// Current returns the signed-in identity, or nil.
func (p *LocalProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.clone()
}

// OnAuthStateChange registers fn and immediately reports the current state to it.
func (p *LocalProvider) OnAuthStateChange(fn Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.order = append(p.order, id)
	current := p.current.clone()
	p.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// transition records the new state and notifies listeners outside the lock.
func (p *LocalProvider) transition(id *Identity) {
	p.mu.Lock()
	p.current = id
	listeners := make([]Listener, 0, len(p.listeners))
	kept := p.order[:0]
	for _, key := range p.order {
		if fn, ok := p.listeners[key]; ok {
			listeners = append(listeners, fn)
			kept = append(kept, key)
		}
	}
	p.order = kept
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(id.clone())
	}
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
