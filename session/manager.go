package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-client/backend"
	"github.com/jrsteele09/go-session-client/credentials"
	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 10 * time.Second

// AuthAPI is the backend surface the manager needs.
type AuthAPI interface {
	Refresh(ctx context.Context, refreshToken string) (*backend.RefreshResponse, error)
	Me(ctx context.Context, accessToken string) (*users.Response, error)
}

var _ AuthAPI = (*backend.Client)(nil)

// Navigator sends the user to the sign-in entry point after logout.
type Navigator interface {
	ToSignIn()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) ToSignIn() { f() }

// State is a read-only snapshot of the session.
type State struct {
	User            *users.Identity
	Loading         bool
	Initialized     bool
	IsAuthenticated bool
}

// Manager owns the credential lifecycle: startup, silent refresh, identity
// fetch, login and logout. All session mutation goes through its methods.
//
// Two counters scope in-flight work. generation is bumped whenever the
// credentials are replaced or torn down; results computed for an older
// generation are dropped. cycle is bumped by Logout and scopes startup.
type Manager struct {
	store     *credentials.Store
	api       AuthAPI
	inspector *token.Inspector
	navigator Navigator
	metrics   *Metrics
	logger    zerolog.Logger
	timeout   time.Duration

	flights singleflight.Group
	storeMu sync.Mutex // serialises storage writes against generation changes

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	identity     *users.Identity
	initialized  bool
	loading      bool
	busy         int
	generation   uint64
	cycle        uint64
	listeners    map[int]func(State)
	nextListener int

	notifyMu    sync.Mutex
	pending     []State
	dispatching bool
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithTimeout bounds each network call. Expiry is treated as a network failure.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

func WithInspector(i *token.Inspector) Option {
	return func(m *Manager) {
		m.inspector = i
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func New(store *credentials.Store, api AuthAPI, options ...Option) *Manager {
	m := &Manager{
		store:     store,
		api:       api,
		logger:    log.Logger,
		loading:   true,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(m)
	}

	if m.inspector == nil {
		m.inspector = token.NewInspector()
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	m.logger = m.logger.With().Str("component", "session").Logger()
	return m
}

// Inspector exposes the token inspector shared with the manager.
func (m *Manager) Inspector() *token.Inspector {
	return m.inspector
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	var user *users.Identity
	if m.identity != nil {
		cp := *m.identity
		cp.Interests = append([]string(nil), m.identity.Interests...)
		user = &cp
	}
	return State{
		User:            user,
		Loading:         m.loading,
		Initialized:     m.initialized,
		IsAuthenticated: user != nil,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// Snapshots are delivered in order on a separate goroutine, so fn may call
// back into the manager. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// notify queues a snapshot for listeners. It never calls a listener itself:
// notify runs inside shared flights, and a listener that waited on one of
// them would wait on itself.
func (m *Manager) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.snapshotLocked()
	m.metrics.observe(st)

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.pending = append(m.pending, st)
	if !m.dispatching {
		m.dispatching = true
		go m.dispatch()
	}
}

// dispatch drains the pending queue until it is empty. At most one dispatch
// goroutine runs at a time.
func (m *Manager) dispatch() {
	for {
		m.notifyMu.Lock()
		batch := m.pending
		m.pending = nil
		if len(batch) == 0 {
			m.dispatching = false
			m.notifyMu.Unlock()
			return
		}
		m.notifyMu.Unlock()

		m.mu.Lock()
		fns := make([]func(State), 0, len(m.listeners))
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
		m.mu.Unlock()

		for _, st := range batch {
			for _, fn := range fns {
				fn(st)
			}
		}
	}
}

// Initialize runs the startup sequence once per cycle. Concurrent callers
// share the same run. A caller whose ctx ends stops waiting; the run continues.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	cycle, initialized := m.cycle, m.initialized
	m.mu.Unlock()
	if initialized {
		return
	}

	ch := m.flights.DoChan(fmt.Sprintf("init:%d", cycle), func() (any, error) {
		m.initialize(cycle)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (m *Manager) initialize(cycle uint64) {
	m.begin()
	defer m.end()

	ctx := context.Background()
	gen := m.currentGeneration()
	logger := m.logger.With().Str("op", "initialize").Uint64("generation", gen).Logger()

	stored := m.store.ReadAll(ctx)
	accessOK := m.inspector.IsValid(stored.AccessToken)
	refreshOK := m.inspector.IsValid(stored.RefreshToken)

	switch {
	case !accessOK && !refreshOK:
		logger.Debug().Msg("no usable stored credentials")
		m.teardown(gen, "no usable credentials")

	case accessOK:
		refresh := ""
		if refreshOK {
			refresh = stored.RefreshToken
		}
		if !m.adopt(gen, stored.AccessToken, refresh) {
			break
		}
		if m.fetchIdentity(ctx, gen, stored.AccessToken) || !refreshOK {
			break
		}
		logger.Info().Msg("stored access token rejected, refreshing")
		if access, ok := m.refresh(ctx, gen, refresh); ok {
			m.fetchIdentity(ctx, gen, access)
		}

	default:
		// Keep the expired access token in memory so the refresh evicts it.
		if !m.adopt(gen, stored.AccessToken, stored.RefreshToken) {
			break
		}
		if access, ok := m.refresh(ctx, gen, stored.RefreshToken); ok {
			m.fetchIdentity(ctx, gen, access)
		}
	}

	m.mu.Lock()
	if m.cycle == cycle {
		m.initialized = true
	}
	m.mu.Unlock()
	logger.Debug().Bool("authenticated", m.State().IsAuthenticated).Msg("initialized")
}

// GetValidToken returns an access token that is well formed and unexpired,
// refreshing if needed. ok is false when the caller must send the user to
// sign in.
func (m *Manager) GetValidToken(ctx context.Context) (string, bool) {
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()

	if !initialized {
		m.Initialize(ctx)
		if ctx.Err() != nil {
			return "", false
		}
	}

	m.mu.Lock()
	access, refresh, gen := m.accessToken, m.refreshToken, m.generation
	m.mu.Unlock()

	if m.inspector.IsValid(access) {
		return access, true
	}
	if m.inspector.IsWellFormed(refresh) {
		return m.refresh(ctx, gen, refresh)
	}
	return "", false
}

// Login installs a new credential pair and fetches the identity. On a
// malformed token nothing changes and an ErrMalformedToken error is returned.
func (m *Manager) Login(ctx context.Context, accessToken, refreshToken string) error {
	if !m.inspector.IsWellFormed(accessToken) {
		return fmt.Errorf("Manager.Login access token: %w", errs.ErrMalformedToken)
	}
	if !m.inspector.IsWellFormed(refreshToken) {
		return fmt.Errorf("Manager.Login refresh token: %w", errs.ErrMalformedToken)
	}

	m.begin()
	defer m.end()

	m.inspector.Clear()

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.accessToken = accessToken
	m.refreshToken = refreshToken
	m.identity = nil
	m.mu.Unlock()

	m.persist(gen, func(ctx context.Context) {
		if err := m.store.WriteSession(ctx, accessToken, refreshToken); err != nil {
			m.logger.Error().Err(err).Str("op", "login").Msg("persisting credentials")
		}
	})

	if !m.fetchIdentity(ctx, gen, accessToken) {
		return fmt.Errorf("Manager.Login: %w", errs.ErrIdentityUnavailable)
	}

	m.mu.Lock()
	if m.generation == gen {
		m.initialized = true
	}
	m.mu.Unlock()
	m.logger.Info().Str("op", "login").Msg("signed in")
	return nil
}

// Logout clears memory, in-flight work and storage, then navigates to sign
// in. It always succeeds and is idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.begin()

	m.mu.Lock()
	oldGen, oldCycle := m.generation, m.cycle
	m.generation++
	m.cycle++
	gen := m.generation
	m.accessToken = ""
	m.refreshToken = ""
	m.identity = nil
	m.initialized = false
	m.mu.Unlock()

	m.flights.Forget(fmt.Sprintf("init:%d", oldCycle))
	m.flights.Forget(fmt.Sprintf("refresh:%d", oldGen))
	m.flights.Forget(fmt.Sprintf("identity:%d", oldGen))
	m.inspector.Clear()

	m.persist(gen, m.store.ClearAll)
	m.end()

	m.logger.Info().Str("op", "logout").Msg("signed out")
	if m.navigator != nil {
		m.navigator.ToSignIn()
	}
}

// CachedIdentity returns the identity fields denormalized into storage by
// the last successful identity fetch, for use before the network is reachable.
func (m *Manager) CachedIdentity(ctx context.Context) (credentials.CachedIdentity, bool) {
	return m.store.ReadIdentity(ctx)
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// adopt installs stored tokens in memory if gen is still current.
func (m *Manager) adopt(gen uint64, access, refresh string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return false
	}
	m.accessToken = access
	m.refreshToken = refresh
	return true
}

// teardown drops every credential of generation gen from memory, the decode
// cache and storage.
func (m *Manager) teardown(gen uint64, reason string) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.generation++
	next := m.generation
	m.accessToken = ""
	m.refreshToken = ""
	m.identity = nil
	m.mu.Unlock()

	m.inspector.Clear()
	m.persist(next, m.store.ClearAll)
	m.logger.Debug().Str("op", "teardown").Str("reason", reason).Uint64("generation", next).Msg("session cleared")
	m.notify()
}

// persist runs fn against storage unless gen has been superseded. Holding
// storeMu across the check and the write keeps a late write from landing
// after a newer clear.
func (m *Manager) persist(gen uint64, fn func(ctx context.Context)) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if m.currentGeneration() != gen {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	fn(ctx)
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.busy++
	m.loading = true
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy--
	m.loading = m.busy > 0
	m.mu.Unlock()
	m.notify()
}
