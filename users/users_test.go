package users_test

import (
	"encoding/json"
	"testing"

	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, payload string) users.Response {
	t.Helper()
	var r users.Response
	require.NoError(t, json.Unmarshal([]byte(payload), &r))
	return r
}

func TestNormalize(t *testing.T) {
	t.Run("camel case role", func(t *testing.T) {
		id, err := users.Normalize(decode(t, `{"id": 7, "username": "alice", "userType": "Vendor"}`))
		require.NoError(t, err)
		require.Equal(t, int64(7), id.ID)
		require.Equal(t, "alice", id.Username)
		require.Equal(t, users.RoleVendor, id.Role)
		require.True(t, id.IsVendor())
	})

	t.Run("snake case role", func(t *testing.T) {
		id, err := users.Normalize(decode(t, `{"id": 8, "user_type": "vendor"}`))
		require.NoError(t, err)
		require.Equal(t, users.RoleVendor, id.Role)
	})

	t.Run("camel case wins", func(t *testing.T) {
		id, err := users.Normalize(decode(t, `{"id": 8, "userType": "Normal User", "user_type": "Vendor"}`))
		require.NoError(t, err)
		require.Equal(t, users.RoleNormalUser, id.Role)
	})

	t.Run("empty camel case role falls through", func(t *testing.T) {
		id, err := users.Normalize(decode(t, `{"id": 8, "userType": "", "user_type": "Vendor"}`))
		require.NoError(t, err)
		require.Equal(t, users.RoleVendor, id.Role)
	})

	t.Run("default role", func(t *testing.T) {
		id, err := users.Normalize(decode(t, `{"id": 9, "username": "carol", "full_name": "Carol C", "interests": ["bikes", {"name": "tents"}, 3]}`))
		require.NoError(t, err)
		require.Equal(t, users.RoleNormalUser, id.Role)
		require.Equal(t, "Carol C", id.DisplayName())
		require.Equal(t, []string{"bikes", "tents", "3"}, id.Interests)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := users.Normalize(decode(t, `{"username": "nobody"}`))
		require.ErrorIs(t, err, errs.ErrMissingIdentityID)
	})

	t.Run("rejected ids", func(t *testing.T) {
		for _, payload := range []string{
			`{"id": 1.5}`,
			`{"id": 7e0}`,
			`{"id": null}`,
			`{"id": "7"}`,
			`{"id": true}`,
		} {
			_, err := users.Normalize(decode(t, payload))
			require.ErrorIs(t, err, errs.ErrMissingIdentityID, payload)
		}
	})
}

func TestIdentity_DisplayName(t *testing.T) {
	var nilIdentity *users.Identity
	require.Equal(t, "", nilIdentity.DisplayName())
	require.Equal(t, "dave", (&users.Identity{Username: "dave"}).DisplayName())
}
