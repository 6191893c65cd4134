package token_test

import (
	"encoding/base64"
	"testing"
	"time"

	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/token/tokenfake"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestInspector_IsWellFormed(t *testing.T) {
	i := token.NewInspector()

	t.Run("signed jwt", func(t *testing.T) {
		require.True(t, i.IsWellFormed(tokenfake.Valid()))
	})

	t.Run("unknown alg still well formed", func(t *testing.T) {
		tok := segment(`{"alg":"XX99"}`) + "." + segment(`{"exp":1}`) + ".sig"
		require.True(t, i.IsWellFormed(tok))
	})

	t.Run("malformed", func(t *testing.T) {
		for _, tok := range []string{
			"",
			"abc",
			"a.b",
			"a.b.c.d",
			segment(`{"alg":"HS256"}`) + ".!!!." + "sig",
			segment(`{"alg":"HS256"}`) + "." + segment("not json") + ".sig",
		} {
			require.False(t, i.IsWellFormed(tok), tok)
		}
	})
}

func TestInspector_DecodeExpiry(t *testing.T) {
	i := token.NewInspector()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := tokenfake.Expiring(exp)

	require.False(t, i.Cached(tok))
	ms, err := i.DecodeExpiry(tok)
	require.NoError(t, err)
	require.Equal(t, exp.Unix()*1000, ms)
	require.True(t, i.Cached(tok))

	t.Run("segment count", func(t *testing.T) {
		_, err := i.DecodeExpiry("a.b")
		require.ErrorIs(t, err, errs.ErrMalformedToken)
	})

	t.Run("missing exp", func(t *testing.T) {
		_, err := i.DecodeExpiry(tokenfake.WithoutExpiry())
		require.ErrorIs(t, err, errs.ErrMalformedToken)
	})
}

func TestInspector_IsExpired(t *testing.T) {
	now := time.Now()
	i := token.NewInspector(token.WithNowFunc(func() time.Time { return now }))

	require.True(t, i.IsExpired(""), "absent token")
	require.True(t, i.IsExpired("only.two"), "two segments")
	require.True(t, i.IsExpired(tokenfake.Expiring(now.Add(-time.Second))), "exp = now - 1")
	require.True(t, i.IsExpired(tokenfake.WithoutExpiry()), "no exp fails closed")
	require.False(t, i.IsExpired(tokenfake.Expiring(now.Add(time.Minute))))

	require.True(t, i.IsValid(tokenfake.Expiring(now.Add(time.Minute))))
	require.False(t, i.IsValid(tokenfake.Expiring(now.Add(-time.Minute))))
}

func TestInspector_Eviction(t *testing.T) {
	i := token.NewInspector()
	a, b := tokenfake.Valid(), tokenfake.Valid()

	_, err := i.DecodeExpiry(a)
	require.NoError(t, err)
	_, err = i.DecodeExpiry(b)
	require.NoError(t, err)

	i.Evict(a)
	require.False(t, i.Cached(a))
	require.True(t, i.Cached(b))

	i.Clear()
	require.False(t, i.Cached(b))
}
