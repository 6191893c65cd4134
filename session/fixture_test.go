package session_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/backend"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/kvfake"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// endpoint is a swappable handler that counts calls.
type endpoint struct {
	mu      sync.Mutex
	handler http.HandlerFunc
	calls   atomic.Int32
}

func (e *endpoint) set(h http.HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.calls.Add(1)
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	h(w, r)
}

func (e *endpoint) count() int {
	return int(e.calls.Load())
}

func (e *endpoint) reset() {
	e.calls.Store(0)
}

// testClock is an adjustable clock for the token inspector.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	kv        *kvfake.FakeKV
	store     *credentials.Store
	refresh   *endpoint
	identity  *endpoint
	server    *httptest.Server
	clock     *testClock
	metrics   *session.Metrics
	navigated atomic.Int32
	manager   *session.Manager
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	seed    map[string]string
	timeout time.Duration
}

func withSeed(seed map[string]string) fixtureOption {
	return func(c *fixtureConfig) {
		c.seed = seed
	}
}

func withTimeout(d time.Duration) fixtureOption {
	return func(c *fixtureConfig) {
		c.timeout = d
	}
}

func setupTestFixture(t *testing.T, options ...fixtureOption) *testFixture {
	t.Helper()

	cfg := fixtureConfig{timeout: 2 * time.Second}
	for _, opt := range options {
		opt(&cfg)
	}

	f := &testFixture{
		kv:       kvfake.NewFakeKV(),
		refresh:  &endpoint{handler: respondStatus(http.StatusNotImplemented)},
		identity: &endpoint{handler: respondJSON(identityPayload)},
		clock:    &testClock{now: time.Now()},
		metrics:  session.NewMetrics(prometheus.NewRegistry()),
	}
	if cfg.seed != nil {
		f.kv.Seed(cfg.seed)
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+backend.DefaultRefreshPath, f.refresh)
	mux.Handle("GET "+backend.DefaultIdentityPath, f.identity)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.store = credentials.NewStore(f.kv, credentials.WithLogger(zerolog.Nop()))
	f.manager = session.New(
		f.store,
		backend.NewClient(f.server.URL),
		session.WithLogger(zerolog.Nop()),
		session.WithTimeout(cfg.timeout),
		session.WithInspector(token.NewInspector(token.WithNowFunc(f.clock.Now))),
		session.WithMetrics(f.metrics),
		session.WithNavigator(session.NavigatorFunc(func() { f.navigated.Add(1) })),
	)
	return f
}

const identityPayload = `{"id": 7, "username": "alice", "email": "alice@example.com", "userType": "Vendor", "interests": ["camping"]}`

func respondJSON(payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}
}

func respondStatus(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}

func respondRefresh(access string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(backend.RefreshResponse{Access: access})
	}
}

// gated wraps h so it blocks until the returned release func is called.
func gated(h http.HandlerFunc) (http.HandlerFunc, func()) {
	gate := make(chan struct{})
	var once sync.Once
	return func(w http.ResponseWriter, r *http.Request) {
			<-gate
			h(w, r)
		}, func() {
			once.Do(func() { close(gate) })
		}
}

// joinDelay gives concurrent callers time to reach the in-flight call.
const joinDelay = 50 * time.Millisecond
