package devbackend

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-client/backend"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteToken    = "/token"
	RouteRefresh  = backend.DefaultRefreshPath
	RouteIdentity = backend.DefaultIdentityPath
)

// Server is a local stand-in for the backend auth API. It issues HS256 token
// pairs for any username and serves the refresh and identity endpoints the
// session client talks to.
type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	creator  *Creator
	signer   *Signer
	accounts *Accounts
	rotate   bool
	logger   zerolog.Logger
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRotation makes the refresh endpoint return a new refresh token on
// every exchange.
func WithRotation(rotate bool) Option {
	return func(s *Server) {
		s.rotate = rotate
	}
}

func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

func New(secret string, accessTTL, refreshTTL time.Duration, options ...Option) *Server {
	signer := NewSigner(secret)
	s := &Server{
		mux:      http.NewServeMux(),
		signer:   signer,
		creator:  NewCreator(signer, accessTTL, refreshTTL),
		accounts: NewAccounts(),
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "devbackend").Logger()

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteIdentity, ChainMiddleware(s.IdentityHandler(), s.APIMiddleware(s.RequireBearer())...))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logger.Info().Str("method", method).Str("path", path).Msg("route")
	}
}

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		NoStoreMiddleware,
	}
	return append(chained, mw...)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			}
		}()
		next(w, r)
	}
}

// NoStoreMiddleware marks every token and identity response uncacheable.
func NoStoreMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next(w, r)
	}
}
