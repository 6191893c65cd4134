package session

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jrsteele09/go-session-client/backend"
	"github.com/jrsteele09/go-session-client/users"
)

// FetchIdentity loads the identity behind accessToken and installs it when
// accessToken is still the session's current token. It returns false without
// a network call for an empty, malformed or expired token. Concurrent callers
// share one request. A 401 returns false so the caller can refresh.
func (m *Manager) FetchIdentity(ctx context.Context, accessToken string) bool {
	return m.fetchIdentity(ctx, m.currentGeneration(), accessToken)
}

func (m *Manager) fetchIdentity(ctx context.Context, gen uint64, accessToken string) bool {
	if !m.inspector.IsValid(accessToken) {
		return false
	}

	ch := m.flights.DoChan(fmt.Sprintf("identity:%d", gen), func() (any, error) {
		return m.doFetchIdentity(gen, accessToken)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return false
		}
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) doFetchIdentity(gen uint64, accessToken string) (bool, error) {
	logger := m.logger.With().Str("op", "identity").Uint64("generation", gen).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var identity *users.Identity
	resp, err := m.api.Me(ctx, accessToken)
	if err == nil {
		identity, err = users.Normalize(*resp)
	}
	if err != nil {
		if backend.IsUnauthorized(err) {
			m.metrics.identityFetched(outcomeRejected)
			logger.Info().Msg("access token rejected by identity endpoint")
		} else {
			m.metrics.identityFetched(outcomeError)
			logger.Warn().Err(err).Int("status", backend.StatusCode(err)).Msg("identity fetch failed")
		}
		return false, err
	}

	m.mu.Lock()
	if m.generation != gen || m.accessToken != accessToken {
		m.mu.Unlock()
		m.metrics.identityFetched(outcomeSuperseded)
		logger.Debug().Msg("identity dropped, session changed")
		return false, errSuperseded
	}
	m.identity = identity
	m.mu.Unlock()

	m.persist(gen, func(ctx context.Context) {
		if err := m.store.WriteIdentity(ctx, string(identity.Role), identity.ID, identity.Username); err != nil {
			logger.Warn().Err(err).Msg("caching identity")
		}
	})
	m.metrics.identityFetched(outcomeSuccess)
	logger.Debug().Str("user_id", strconv.FormatInt(identity.ID, 10)).Msg("identity loaded")
	m.notify()
	return true, nil
}
