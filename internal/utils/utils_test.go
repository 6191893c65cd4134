package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-session-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCoalesce(t *testing.T) {
	require.Equal(t, "a", utils.Coalesce(ptr("a"), ptr("b")))
	require.Equal(t, "b", utils.Coalesce(nil, ptr("b")))
	require.Equal(t, "", utils.Coalesce[string](nil, nil))
	require.Equal(t, "b", utils.Coalesce(ptr(""), ptr("b")))
	require.Equal(t, "", utils.Coalesce(ptr(""), nil))
}

func TestValue(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, 3, utils.Value(ptr(3)))
}

func TestToTagSlice(t *testing.T) {
	in := []any{
		"camping",
		" ",
		map[string]any{"name": " kayaks "},
		map[string]any{"id": 4},
		float64(42),
		true,
		nil,
	}
	require.Equal(t, []string{"camping", "kayaks", "42"}, utils.ToTagSlice(in))
	require.Empty(t, utils.ToTagSlice(nil))
}
