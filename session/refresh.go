package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-session-client/backend"
	errs "github.com/jrsteele09/go-session-client/internal/errors"
)

var errSuperseded = errors.New("session superseded")

// Refresh exchanges refreshToken for a new access token. Concurrent callers
// share one network exchange and its outcome. Any failure, including a
// timeout, tears the whole session down; there is no retry.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, bool) {
	return m.refresh(ctx, m.currentGeneration(), refreshToken)
}

func (m *Manager) refresh(ctx context.Context, gen uint64, refreshToken string) (string, bool) {
	if !m.inspector.IsWellFormed(refreshToken) {
		m.logger.Warn().Str("op", "refresh").Msg("malformed refresh token")
		m.metrics.refreshed(outcomeMalformed)
		m.teardown(gen, "malformed refresh token")
		return "", false
	}

	// A caller holding a refresh token that a rotation already replaced must
	// not spend it again: the backend rejects reuse and the rejection would
	// sign the session out.
	m.mu.Lock()
	current, access := m.refreshToken, m.accessToken
	rotated := m.generation == gen && current != "" && current != refreshToken
	m.mu.Unlock()
	if rotated {
		if m.inspector.IsValid(access) {
			return access, true
		}
		refreshToken = current
	}

	ch := m.flights.DoChan(fmt.Sprintf("refresh:%d", gen), func() (any, error) {
		return m.doRefresh(gen, refreshToken)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", false
		}
		return res.Val.(string), true
	case <-ctx.Done():
		return "", false
	}
}

func (m *Manager) doRefresh(gen uint64, refreshToken string) (string, error) {
	logger := m.logger.With().Str("op", "refresh").Uint64("generation", gen).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	resp, err := m.api.Refresh(ctx, refreshToken)
	if err == nil && !m.inspector.IsWellFormed(resp.Access) {
		err = fmt.Errorf("refreshed access token: %w", errs.ErrMalformedToken)
	}
	if err != nil {
		// TODO: keep the session on transient failures once product decides; today
		// an unreachable backend signs the user out just like a rejection.
		outcome := classifyRefreshFailure(err)
		m.metrics.refreshed(outcome)
		logger.Warn().Err(err).Str("outcome", outcome).Int("status", backend.StatusCode(err)).Msg("refresh failed, clearing session")
		m.teardown(gen, "refresh "+outcome)
		return "", err
	}

	nextRefresh := refreshToken
	if resp.Refresh != "" && m.inspector.IsWellFormed(resp.Refresh) {
		nextRefresh = resp.Refresh
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.metrics.refreshed(outcomeSuperseded)
		logger.Debug().Msg("refresh result dropped, session changed")
		return "", errSuperseded
	}
	previous := m.accessToken
	m.accessToken = resp.Access
	m.refreshToken = nextRefresh
	m.mu.Unlock()

	m.inspector.Evict(previous)
	m.persist(gen, func(ctx context.Context) {
		var err error
		if nextRefresh == refreshToken {
			err = m.store.WriteAccessToken(ctx, resp.Access)
		} else {
			err = m.store.WriteSession(ctx, resp.Access, nextRefresh)
		}
		if err != nil {
			logger.Error().Err(err).Msg("persisting refreshed token")
		}
	})
	m.metrics.refreshed(outcomeSuccess)
	logger.Debug().Bool("rotated", nextRefresh != refreshToken).Msg("access token refreshed")
	m.notify()
	return resp.Access, nil
}

func classifyRefreshFailure(err error) string {
	switch {
	case backend.IsRejected(err):
		return outcomeRejected
	case errs.Is(err, errs.ErrMalformedToken), errs.Is(err, errs.ErrMalformedPayload):
		return outcomeMalformed
	case backend.StatusCode(err) != 0:
		return outcomeError
	default:
		return outcomeUnreachable
	}
}
