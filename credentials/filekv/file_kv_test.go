package filekv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-session-client/credentials/filekv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "creds.json")

	kv, err := filekv.New(path, "")
	require.NoError(t, err)

	_, ok, err := kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "accessToken", "a.b.c"))
	v, ok, err := kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a.b.c", v)

	require.NoError(t, kv.Remove(ctx, "accessToken"))
	require.NoError(t, kv.Remove(ctx, "accessToken"))
	_, ok, err = kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.json")

	first, err := filekv.New(path, "s3cret")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "refreshToken", "d.e.f"))

	second, err := filekv.New(path, "s3cret")
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, "refreshToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "d.e.f", v)
}

func TestKV_SealedAtRest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.json")

	kv, err := filekv.New(path, "s3cret")
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "accessToken", "very-visible-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "very-visible-token")

	wrong, err := filekv.New(path, "other")
	require.NoError(t, err)
	_, _, err = wrong.Get(ctx, "accessToken")
	require.Error(t, err)
}

func TestKV_RecoversFromCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	kv, err := filekv.New(path, "", filekv.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, _, err = kv.Get(ctx, "accessToken")
	require.ErrorIs(t, err, filekv.ErrCorrupt)

	require.NoError(t, kv.Set(ctx, "accessToken", "a.b.c"))
	v, ok, err := kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a.b.c", v)

	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))
	require.NoError(t, kv.Remove(ctx, "accessToken"))
	_, ok, err = kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)
}
