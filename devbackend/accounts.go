package devbackend

import (
	"strings"
	"sync"

	errs "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/users"
)

// Account is a dev user. Accounts are created on first sign-in.
type Account struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	FullName  string         `json:"full_name,omitempty"`
	Role      users.RoleType `json:"userType"`
	Interests []string       `json:"interests"`
}

// Accounts is an in-memory account directory that also tracks the single
// live refresh token of each account.
type Accounts struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*Account
	byUsername map[string]*Account
	refreshJTI map[int64]string
}

func NewAccounts() *Accounts {
	return &Accounts{
		nextID:     1,
		byID:       make(map[int64]*Account),
		byUsername: make(map[string]*Account),
		refreshJTI: make(map[int64]string),
	}
}

// Ensure returns the account for username, creating it with role if absent.
func (a *Accounts) Ensure(username string, role users.RoleType) *Account {
	key := strings.ToLower(strings.TrimSpace(username))

	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.byUsername[key]; ok {
		return acc
	}
	if role == "" {
		role = users.RoleNormalUser
	}
	acc := &Account{
		ID:        a.nextID,
		Username:  key,
		Email:     key + "@example.com",
		Role:      role,
		Interests: []string{},
	}
	a.nextID++
	a.byID[acc.ID] = acc
	a.byUsername[key] = acc
	return acc
}

func (a *Accounts) Get(id int64) (*Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byID[id]
	if !ok {
		return nil, errs.Wrapf(errs.ErrNotFound, "account %d", id)
	}
	return acc, nil
}

// SetRefresh records jti as the only valid refresh token of account id,
// revoking any earlier one.
func (a *Accounts) SetRefresh(id int64, jti string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshJTI[id] = jti
}

// ConsumeRefresh reports whether jti is the live refresh token of account id
// and revokes it.
func (a *Accounts) ConsumeRefresh(id int64, jti string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if current, ok := a.refreshJTI[id]; !ok || current != jti {
		return false
	}
	delete(a.refreshJTI, id)
	return true
}
