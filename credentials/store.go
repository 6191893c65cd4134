package credentials

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Tokens is the pair of bearer credentials read back from storage. Empty
// strings mean absent.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// CachedIdentity holds the identity fields denormalized into storage for
// offline reads.
type CachedIdentity struct {
	Role     string
	ID       int64
	Username string
}

// Store persists session credentials over a KV.
type Store struct {
	kv     KV
	logger zerolog.Logger
}

type StoreOption func(*Store)

func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

func NewStore(kv KV, options ...StoreOption) *Store {
	s := &Store{
		kv:     kv,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "credentials").Logger()
	return s
}

// ReadAll reads both tokens concurrently. Storage failures are logged and
// reported as absent tokens.
func (s *Store) ReadAll(ctx context.Context) Tokens {
	var access, refresh string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, _, err := s.kv.Get(gctx, KeyAccessToken)
		access = v
		return err
	})
	g.Go(func() error {
		v, _, err := s.kv.Get(gctx, KeyRefreshToken)
		refresh = v
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("reading stored tokens")
		return Tokens{}
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}
}

// WriteSession writes both tokens concurrently and waits for both.
func (s *Store) WriteSession(ctx context.Context, accessToken, refreshToken string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.kv.Set(gctx, KeyAccessToken, accessToken)
	})
	g.Go(func() error {
		return s.kv.Set(gctx, KeyRefreshToken, refreshToken)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("Store.WriteSession: %w", err)
	}
	return nil
}

// WriteAccessToken replaces only the access token.
func (s *Store) WriteAccessToken(ctx context.Context, accessToken string) error {
	if err := s.kv.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("Store.WriteAccessToken: %w", err)
	}
	return nil
}

func (s *Store) WriteIdentity(ctx context.Context, role string, id int64, username string) error {
	values := map[string]string{
		KeyUserType: role,
		KeyUserID:   strconv.FormatInt(id, 10),
		KeyUsername: username,
	}

	g, gctx := errgroup.WithContext(ctx)
	for k, v := range values {
		g.Go(func() error {
			return s.kv.Set(gctx, k, v)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("Store.WriteIdentity: %w", err)
	}
	return nil
}

// ReadIdentity returns the denormalized identity fields. ok is false when
// no usable id is stored.
func (s *Store) ReadIdentity(ctx context.Context) (CachedIdentity, bool) {
	var ci CachedIdentity
	var rawID string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ci.Role, _, err = s.kv.Get(gctx, KeyUserType)
		return err
	})
	g.Go(func() (err error) {
		rawID, _, err = s.kv.Get(gctx, KeyUserID)
		return err
	})
	g.Go(func() (err error) {
		ci.Username, _, err = s.kv.Get(gctx, KeyUsername)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("reading cached identity")
		return CachedIdentity{}, false
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return CachedIdentity{}, false
	}
	ci.ID = id
	return ci, true
}

// ClearAll removes every key concurrently. It never fails; errors are logged.
func (s *Store) ClearAll(ctx context.Context) {
	var g errgroup.Group
	for _, key := range AllKeys {
		g.Go(func() error {
			if err := s.kv.Remove(ctx, key); err != nil {
				return fmt.Errorf("remove %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("clearing stored credentials")
	}
}
