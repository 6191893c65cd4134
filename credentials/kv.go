package credentials

import "context"

// KV is the persistent key-value storage the credential store sits on.
// Get reports ok=false for a missing key; that is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Storage keys
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserType     = "userType"
	KeyUserID       = "currentUserId"
	KeyUsername     = "currentUsername"
)

// AllKeys lists every key the store owns.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserType, KeyUserID, KeyUsername}
