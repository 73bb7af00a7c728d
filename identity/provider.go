package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	authUtils "civicsync-dashboard/utils"

	"github.com/google/uuid"
)

// ErrTokenRevoked is returned when a token belongs to a session that signed out.
var ErrTokenRevoked = errors.New("session token has been revoked")

// Identity is an authenticated principal issued by the provider.
type Identity struct {
	UID       string    `json:"uid"`
	Anonymous bool      `json:"anonymous"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Provider is the identity service the session manager signs in against.
type Provider interface {
	// Subscribe registers fn for identity changes. fn is called once right
	// away with the current identity. The returned func unregisters it.
	Subscribe(fn func(*Identity)) func()
	Current() *Identity
	SignInAnonymously(ctx context.Context) (*Identity, error)
	SignInWithToken(ctx context.Context, token string) (*Identity, error)
	SignOut(ctx context.Context) error
}

// Registry remembers signed-out sessions until their tokens expire.
type Registry interface {
	Revoke(ctx context.Context, uid string, ttl time.Duration) error
	IsRevoked(ctx context.Context, uid string) (bool, error)
}

// TokenProvider issues HS256 session tokens and keeps one current identity.
type TokenProvider struct {
	secret   []byte
	ttl      time.Duration
	registry Registry

	// notifyMu orders deliveries so listeners see identities in the order they were set.
	notifyMu sync.Mutex

	mu        sync.Mutex
	current   *Identity
	listeners map[int]func(*Identity)
	nextID    int
}

func NewTokenProvider(secret []byte, ttl time.Duration, registry Registry) *TokenProvider {
	return &TokenProvider{
		secret:    secret,
		ttl:       ttl,
		registry:  registry,
		listeners: make(map[int]func(*Identity)),
	}
}

func (p *TokenProvider) Subscribe(fn func(*Identity)) func() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := p.current
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *TokenProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *TokenProvider) SignInAnonymously(ctx context.Context) (*Identity, error) {
	uid := uuid.NewString()
	token, expiresAt, err := authUtils.GenerateSessionToken(uid, true, p.secret, p.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue anonymous session: %w", err)
	}

	ident := &Identity{UID: uid, Anonymous: true, Token: token, ExpiresAt: expiresAt}
	p.set(ident)
	return ident, nil
}

func (p *TokenProvider) SignInWithToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := authUtils.ParseSessionToken(token, p.secret)
	if err != nil {
		return nil, err
	}

	revoked, err := p.registry.IsRevoked(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	ident := &Identity{
		UID:       claims.UserID,
		Anonymous: claims.Anonymous,
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	}
	p.set(ident)
	return ident, nil
}

// SignOut revokes the current session. The identity is cleared even if the
// revocation could not be recorded.
func (p *TokenProvider) SignOut(ctx context.Context) error {
	current := p.Current()
	if current == nil {
		return nil
	}

	var err error
	if remaining := time.Until(current.ExpiresAt); remaining > 0 {
		if rerr := p.registry.Revoke(ctx, current.UID, remaining); rerr != nil {
			err = fmt.Errorf("revoke session: %w", rerr)
		}
	}
	p.set(nil)
	return err
}

// set must not be called from a listener.
func (p *TokenProvider) set(ident *Identity) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.current = ident
	fns := make([]func(*Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ident)
	}
}
