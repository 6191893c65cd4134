package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/utils"
)

// RoleType is the marketplace role of an account
type RoleType string

const (
	RoleNormalUser RoleType = "Normal User" // Rents items
	RoleVendor     RoleType = "Vendor"      // Lends items
)

// Identity is the canonical authenticated user record kept in memory.
type Identity struct {
	ID        int64    `json:"id"`                  // Backend user id
	Username  string   `json:"username,omitempty"`  // Unique username
	Email     string   `json:"email,omitempty"`     // Account email
	FullName  string   `json:"full_name,omitempty"` // Display name
	Role      RoleType `json:"role"`                // Normal User or Vendor
	Interests []string `json:"interests,omitempty"` // Interest tags
}

// IsVendor reports whether the account can list items.
func (i *Identity) IsVendor() bool {
	return i != nil && i.Role == RoleVendor
}

// DisplayName falls back to the username when no full name is set.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if strings.TrimSpace(i.FullName) != "" {
		return i.FullName
	}
	return i.Username
}

// Response mirrors the identity endpoint payload as the backend sends it.
// The role arrives under either userType or user_type. ID is kept raw so a
// quoted id can be told apart from a JSON number.
type Response struct {
	ID         json.RawMessage `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	FullName   *string         `json:"full_name"`
	UserType   *string         `json:"userType"`
	UserTypeSn *string         `json:"user_type"`
	Interests  []any           `json:"interests"`
}

// Normalize converts a backend response into an Identity. An id that is
// missing, null, a string or not an integer is an error.
func Normalize(r Response) (*Identity, error) {
	id, err := parseID(r.ID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		ID:        id,
		Username:  r.Username,
		Email:     r.Email,
		FullName:  utils.Value(r.FullName),
		Role:      ParseRole(utils.Coalesce(r.UserType, r.UserTypeSn)),
		Interests: utils.ToTagSlice(r.Interests),
	}, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errs.ErrMissingIdentityID
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrMissingIdentityID, raw)
	}
	return id, nil
}

// ParseRole maps a backend role string to a RoleType, defaulting to
// RoleNormalUser.
func ParseRole(s string) RoleType {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleVendor)) {
		return RoleVendor
	}
	return RoleNormalUser
}
