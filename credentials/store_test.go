package credentials_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/kvfake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newStore(kv credentials.KV) *credentials.Store {
	return credentials.NewStore(kv, credentials.WithLogger(zerolog.Nop()))
}

func TestStore_ReadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("both present", func(t *testing.T) {
		kv := kvfake.NewFakeKV().Seed(map[string]string{
			credentials.KeyAccessToken:  "a.b.c",
			credentials.KeyRefreshToken: "d.e.f",
		})
		tokens := newStore(kv).ReadAll(ctx)
		require.Equal(t, credentials.Tokens{AccessToken: "a.b.c", RefreshToken: "d.e.f"}, tokens)
	})

	t.Run("empty storage", func(t *testing.T) {
		tokens := newStore(kvfake.NewFakeKV()).ReadAll(ctx)
		require.Empty(t, tokens.AccessToken)
		require.Empty(t, tokens.RefreshToken)
	})

	t.Run("storage failure reads as absent", func(t *testing.T) {
		kv := kvfake.NewFakeKV().Seed(map[string]string{credentials.KeyAccessToken: "a.b.c"})
		kv.FailWith(errors.New("disk gone"), nil, nil)
		require.Equal(t, credentials.Tokens{}, newStore(kv).ReadAll(ctx))
	})
}

func TestStore_WriteSession(t *testing.T) {
	ctx := context.Background()
	kv := kvfake.NewFakeKV()
	s := newStore(kv)

	require.NoError(t, s.WriteSession(ctx, "access", "refresh"))
	snap := kv.Snapshot()
	require.Equal(t, "access", snap[credentials.KeyAccessToken])
	require.Equal(t, "refresh", snap[credentials.KeyRefreshToken])

	kv.FailWith(nil, errors.New("read only"), nil)
	err := s.WriteSession(ctx, "x", "y")
	require.Error(t, err)
	require.Contains(t, err.Error(), "read only")
}

func TestStore_WriteAccessToken(t *testing.T) {
	ctx := context.Background()
	kv := kvfake.NewFakeKV().Seed(map[string]string{
		credentials.KeyAccessToken:  "old",
		credentials.KeyRefreshToken: "refresh",
	})

	require.NoError(t, newStore(kv).WriteAccessToken(ctx, "new"))
	snap := kv.Snapshot()
	require.Equal(t, "new", snap[credentials.KeyAccessToken])
	require.Equal(t, "refresh", snap[credentials.KeyRefreshToken])
}

func TestStore_Identity(t *testing.T) {
	ctx := context.Background()
	kv := kvfake.NewFakeKV()
	s := newStore(kv)

	_, ok := s.ReadIdentity(ctx)
	require.False(t, ok)

	require.NoError(t, s.WriteIdentity(ctx, "Vendor", 42, "bob"))
	require.Equal(t, "42", kv.Snapshot()[credentials.KeyUserID])

	ci, ok := s.ReadIdentity(ctx)
	require.True(t, ok)
	require.Equal(t, credentials.CachedIdentity{Role: "Vendor", ID: 42, Username: "bob"}, ci)
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	seed := map[string]string{}
	for _, k := range credentials.AllKeys {
		seed[k] = "v"
	}

	t.Run("removes every key", func(t *testing.T) {
		kv := kvfake.NewFakeKV().Seed(seed)
		newStore(kv).ClearAll(ctx)
		require.Empty(t, kv.Snapshot())
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		kv := kvfake.NewFakeKV().Seed(seed)
		kv.FailWith(nil, nil, errors.New("locked"))
		require.NotPanics(t, func() { newStore(kv).ClearAll(ctx) })
		require.Len(t, kv.Snapshot(), len(credentials.AllKeys))
	})
}
