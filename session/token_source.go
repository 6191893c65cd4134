package session

import (
	"context"
	"net/http"
	"time"

	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

// TokenSource adapts GetValidToken to oauth2.TokenSource so outbound API
// clients get a fresh bearer token on every request.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, m: m}
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	access, ok := s.m.GetValidToken(s.ctx)
	if !ok {
		return nil, errs.ErrNoSession
	}

	t := &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
	}
	if exp, err := s.m.inspector.DecodeExpiry(access); err == nil {
		t.Expiry = time.UnixMilli(exp)
	}
	return t, nil
}

// HTTPClient returns a client that authorizes every request with the
// session's bearer token. Requests fail with ErrNoSession when signed out.
func (m *Manager) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, m.TokenSource(ctx))
}
