package rediskv_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/credentials/rediskv"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when SESSION_TEST_REDIS_ADDR is set.
func TestKV_RoundTrip(t *testing.T) {
	addr := os.Getenv("SESSION_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SESSION_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client, err := rediskv.Dial(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	kv := rediskv.New(client, "test:"+uuid.NewString()+":")

	_, ok, err := kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "accessToken", "a.b.c"))
	v, ok, err := kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a.b.c", v)

	require.NoError(t, kv.Remove(ctx, "accessToken"))
	_, ok, err = kv.Get(ctx, "accessToken")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDial_Unreachable(t *testing.T) {
	_, err := rediskv.Dial(context.Background(), "127.0.0.1:1", "", 0)
	require.Error(t, err)
}
