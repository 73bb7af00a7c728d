package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"civicsync-dashboard/identity"
	"civicsync-dashboard/models"
	"civicsync-dashboard/pubsub"
)

// User-visible messages recorded on the snapshot.
const (
	MsgInvalidCredentials = "Invalid credentials. Please try again."
	MsgProviderFailure    = "Identity provider authentication failed. Check console."
	MsgInvalidToken       = "Session token is invalid or expired. Please login manually."
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderSignIn     = errors.New("identity provider sign-in failed")
	ErrLoginUnavailable   = errors.New("login not accepted in current session state")
)

// Snapshot is a consistent view of the session.
type Snapshot struct {
	State State              `json:"state"`
	Admin *identity.Identity `json:"admin,omitempty"`
	// AdminEmail is the configured dashboard account shown in the header.
	AdminEmail string `json:"adminEmail,omitempty"`
	Error      string `json:"error,omitempty"`
	// Epoch increases every time a new identity becomes authenticated.
	Epoch uint64 `json:"-"`
}

func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated
}

// Manager owns the admin session state machine. All state changes go through
// the transition table in Next; identity changes arrive from the provider
// subscription, which is authoritative.
type Manager struct {
	provider     identity.Provider
	admin        *models.Admin
	initialToken string

	mu      sync.Mutex
	snap    Snapshot
	changes *pubsub.Broadcaster
}

func NewManager(provider identity.Provider, admin *models.Admin, initialToken string) *Manager {
	return &Manager{
		provider:     provider,
		admin:        admin,
		initialToken: initialToken,
		snap:         Snapshot{State: Authenticating},
		changes:      pubsub.NewBroadcaster(),
	}
}

// Run subscribes to identity changes and, when no session exists yet, tries
// the initial token. It blocks until ctx is done and releases the subscription.
func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	if m.initialToken != "" && m.provider.Current() == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.exchangeToken(ctx)
		}()
	}

	unsubscribe := m.provider.Subscribe(m.onIdentity)
	defer unsubscribe()

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (m *Manager) exchangeToken(ctx context.Context) {
	if _, err := m.provider.SignInWithToken(ctx, m.initialToken); err != nil {
		log.Println("Error signing in with initial token:", err)
		// Ignored when the subscription already authenticated the session.
		_ = m.apply(TokenRejected, nil, MsgInvalidToken)
	}
}

func (m *Manager) onIdentity(ident *identity.Identity) {
	if ident != nil {
		_ = m.apply(SignedIn, ident, "")
		return
	}
	_ = m.apply(SignedOut, nil, "")
}

// Login checks the configured admin credentials and then opens an anonymous
// provider session. The Authenticated transition arrives via the subscription.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := m.apply(LoginRequested, nil, ""); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}

	if !m.admin.Matches(email, password) {
		_ = m.apply(LoginFailed, nil, MsgInvalidCredentials)
		return ErrInvalidCredentials
	}

	if _, err := m.provider.SignInAnonymously(ctx); err != nil {
		log.Println("Admin sign-in failed:", err)
		_ = m.apply(LoginFailed, nil, MsgProviderFailure)
		return fmt.Errorf("%w: %v", ErrProviderSignIn, err)
	}
	return nil
}

// Logout asks the provider to end the session. The state change arrives via
// the subscription, including when SignOut returns an error.
func (m *Manager) Logout(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Changes signals after every accepted transition.
func (m *Manager) Changes() (<-chan struct{}, func()) {
	return m.changes.Subscribe()
}

func (m *Manager) apply(e Event, ident *identity.Identity, msg string) error {
	m.mu.Lock()
	next, err := Next(m.snap.State, e)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	prev := m.snap
	m.snap.State = next
	switch e {
	case LoginRequested:
		m.snap.Error = ""
	case LoginFailed, TokenRejected:
		m.snap.Admin = nil
		m.snap.AdminEmail = ""
		m.snap.Error = msg
	case SignedIn:
		m.snap.Admin = ident
		m.snap.AdminEmail = m.admin.Email
		m.snap.Error = ""
		if prev.State != Authenticated || prev.Admin == nil || prev.Admin.UID != ident.UID {
			m.snap.Epoch++
		}
	case SignedOut:
		// A pending error stays visible on the login form.
		m.snap.Admin = nil
		m.snap.AdminEmail = ""
	}
	m.mu.Unlock()

	m.changes.Notify()
	return nil
}
