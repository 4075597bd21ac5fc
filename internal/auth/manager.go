// Package auth owns the bearer credential: acquisition, validation, refresh,
// persistence, and state-change notification.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hal9000y/gmail-sender/internal/kvstore"
)

// Credential is an acquired bearer token. Never mutated: invalidation
// replaces it wholesale with a fresh acquisition.
type Credential struct {
	Token      string    `json:"token"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// IdentityProvider is the external identity collaborator.
type IdentityProvider interface {
	AcquireToken(ctx context.Context, interactive bool, scopes []string) (string, error)
	Introspect(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string) error
}

// State names the manager's position in its credential lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAcquiring       State = "acquiring"
	StateAuthenticated   State = "authenticated"
)

// Listener receives credential transitions: true on acquisition, false on
// invalidation.
type Listener func(authenticated bool)

const credentialKey = "auth.credential"

// Manager holds at most one live credential for the process. The in-memory
// copy is authoritative; the persisted copy in the key-value store is a
// cache. Acquisition is serialized: concurrent callers join a single
// in-flight acquisition instead of racing interactive consent prompts.
type Manager struct {
	provider IdentityProvider
	store    kvstore.Store
	scopes   []string

	sf singleflight.Group

	mu        sync.RWMutex
	cred      *Credential
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a Manager acquiring tokens for the given scopes.
func NewManager(provider IdentityProvider, store kvstore.Store, scopes []string) *Manager {
	return &Manager{
		provider:  provider,
		store:     store,
		scopes:    scopes,
		state:     StateUnauthenticated,
		listeners: make(map[int]Listener),
	}
}

// GetValidToken returns a currently valid credential: the in-memory one if
// introspection confirms it live, else a verified persisted one, else a fresh
// acquisition (silent first, interactive as last resort). The interactive
// wait is unbounded and cancelled through ctx.
func (m *Manager) GetValidToken(ctx context.Context) (*Credential, error) {
	if cred := m.current(); cred != nil {
		ok, err := m.provider.Introspect(ctx, cred.Token)
		if err != nil {
			// Validation outage, not a verdict on the token; keep it.
			return nil, fmt.Errorf("credential validation failed: %w", err)
		}
		if ok {
			return cred, nil
		}
		m.invalidate(ctx)
	}

	if cred := m.loadPersisted(ctx); cred != nil {
		ok, err := m.provider.Introspect(ctx, cred.Token)
		if err != nil {
			return nil, fmt.Errorf("credential validation failed: %w", err)
		}
		if ok {
			m.adopt(ctx, cred)
			return cred, nil
		}
		if err := m.store.Remove(ctx, credentialKey); err != nil {
			log.Println("store.Remove failed", err)
		}
	}

	return m.acquire(ctx)
}

// Refresh discards the current credential from memory, persistence and the
// identity provider, then runs the acquisition path again.
func (m *Manager) Refresh(ctx context.Context) (*Credential, error) {
	m.discard(ctx, true)

	return m.acquire(ctx)
}

// Clear drops the credential from all three locations and notifies listeners.
func (m *Manager) Clear(ctx context.Context) {
	m.discard(ctx, true)
}

// Subscribe registers a listener for credential transitions and returns its
// unsubscribe function.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// State reports the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// acquire funnels all acquisitions through a single flight so at most one
// interactive consent prompt exists at a time; late callers join the pending
// acquisition and share its outcome.
func (m *Manager) acquire(ctx context.Context) (*Credential, error) {
	v, err, _ := m.sf.Do("acquire", func() (any, error) {
		m.setState(StateAcquiring)

		token, err := m.provider.AcquireToken(ctx, false, m.scopes)
		if err != nil {
			token, err = m.provider.AcquireToken(ctx, true, m.scopes)
		}
		if err != nil {
			m.setState(StateUnauthenticated)
			return nil, fmt.Errorf("token acquisition failed: %w", err)
		}

		cred := &Credential{Token: token, AcquiredAt: time.Now()}
		m.adopt(ctx, cred)

		return cred, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Credential), nil
}

// adopt installs a credential as current, persists it best-effort, and
// notifies listeners of the acquisition.
func (m *Manager) adopt(ctx context.Context, cred *Credential) {
	m.mu.Lock()
	m.cred = cred
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.persist(ctx, cred)
	m.notify(true)
}

// invalidate drops the in-memory and persisted copies without touching the
// provider; used when introspection reports the token dead.
func (m *Manager) invalidate(ctx context.Context) {
	m.discard(ctx, false)
}

func (m *Manager) discard(ctx context.Context, revoke bool) {
	m.mu.Lock()
	cred := m.cred
	held := cred != nil || m.state != StateUnauthenticated
	m.cred = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if err := m.store.Remove(ctx, credentialKey); err != nil {
		log.Println("store.Remove failed", err)
	}

	if revoke && cred != nil {
		if err := m.provider.Revoke(ctx, cred.Token); err != nil {
			log.Println("provider.Revoke failed", err)
		}
	}

	// Nothing was held, nothing was invalidated.
	if held {
		m.notify(false)
	}
}

func (m *Manager) current() *Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cred
}

func (m *Manager) loadPersisted(ctx context.Context) *Credential {
	raw, ok, err := m.store.Get(ctx, credentialKey)
	if err != nil || !ok {
		if err != nil {
			log.Println("store.Get failed", err)
		}
		return nil
	}

	cred := &Credential{}
	if err := json.Unmarshal([]byte(raw), cred); err != nil {
		log.Println("json.Unmarshal failed", err)
		return nil
	}

	return cred
}

// persist caches the credential; the store copy is not the source of truth,
// so failures are logged and swallowed.
func (m *Manager) persist(ctx context.Context, cred *Credential) {
	raw, err := json.Marshal(cred)
	if err != nil {
		log.Println("json.Marshal failed", err)
		return
	}

	if err := m.store.Set(ctx, credentialKey, string(raw)); err != nil {
		log.Println("store.Set failed", err)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) notify(authenticated bool) {
	m.mu.RLock()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(authenticated)
	}
}
