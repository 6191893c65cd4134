package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/devbackend"
	"github.com/jrsteele09/go-session-client/internal/config"
	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage")

type cli struct {
	config   config.Config
	store    *credentials.Store
	manager  *session.Manager
	registry *prometheus.Registry
	out      io.Writer
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "status":
		return c.status(ctx)
	case "token":
		return c.token(ctx)
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		return c.login(ctx, args[0], args[1])
	case "dev-login":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		role := ""
		if len(args) == 2 {
			role = args[1]
		}
		return c.devLogin(ctx, args[0], role)
	case "refresh":
		return c.refresh(ctx)
	case "logout":
		c.manager.Logout(ctx)
		return nil
	case "watch":
		return c.watch(ctx, args)
	default:
		return errUsage
	}
}

type statusView struct {
	Authenticated bool   `json:"authenticated"`
	Initialized   bool   `json:"initialized"`
	UserID        int64  `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Role          string `json:"role,omitempty"`
	Vendor        bool   `json:"vendor"`
	ExpiresAt     string `json:"access_expires_at,omitempty"`
	Cached        bool   `json:"from_cache,omitempty"`
}

func (c *cli) status(ctx context.Context) error {
	c.manager.Initialize(ctx)
	st := c.manager.State()

	view := statusView{Authenticated: st.IsAuthenticated, Initialized: st.Initialized}
	switch {
	case st.User != nil:
		view.UserID = st.User.ID
		view.Username = st.User.Username
		view.DisplayName = st.User.DisplayName()
		view.Role = string(st.User.Role)
		view.Vendor = st.User.IsVendor()
	default:
		// identity endpoint unreachable: fall back to what the last fetch cached
		if cached, ok := c.manager.CachedIdentity(ctx); ok {
			view.UserID = cached.ID
			view.Username = cached.Username
			view.Role = cached.Role
			view.Cached = true
		}
	}

	if access, ok := c.manager.GetValidToken(ctx); ok {
		if exp, err := c.manager.Inspector().DecodeExpiry(access); err == nil {
			view.ExpiresAt = time.UnixMilli(exp).Format(time.RFC3339)
		}
	}
	return c.printJSON(view)
}

func (c *cli) token(ctx context.Context) error {
	access, ok := c.manager.GetValidToken(ctx)
	if !ok {
		return errs.ErrNoSession
	}
	_, err := fmt.Fprintln(c.out, access)
	return err
}

func (c *cli) login(ctx context.Context, access, refresh string) error {
	if err := c.manager.Login(ctx, access, refresh); err != nil {
		return err
	}
	return c.status(ctx)
}

func (c *cli) devLogin(ctx context.Context, username, role string) error {
	hc := &http.Client{Timeout: c.config.GetRequestTimeout()}
	pair, err := devbackend.SignIn(ctx, hc, c.config.GetBaseURL(), devbackend.TokenRequest{Username: username, UserType: role})
	if err != nil {
		return err
	}
	return c.login(ctx, pair.Access, pair.Refresh)
}

func (c *cli) refresh(ctx context.Context) error {
	c.manager.Initialize(ctx)
	stored := c.store.ReadAll(ctx)
	if stored.RefreshToken == "" {
		return errs.ErrNoSession
	}
	if _, ok := c.manager.Refresh(ctx, stored.RefreshToken); !ok {
		return fmt.Errorf("refresh: %w", errs.ErrRefreshRejected)
	}
	return c.status(ctx)
}

func (c *cli) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", 30*time.Second, "how often to check the access token")
	metricsAddr := fs.String("metrics", ":9090", "address to serve /metrics on, empty to disable")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer srv.Close()
	}

	unsubscribe := c.manager.Subscribe(func(st session.State) {
		log.Debug().Bool("authenticated", st.IsAuthenticated).Bool("loading", st.Loading).Msg("session state")
	})
	defer unsubscribe()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if _, ok := c.manager.GetValidToken(ctx); !ok {
			return errs.ErrNoSession
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
