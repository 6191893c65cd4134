package token

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	errs "github.com/jrsteele09/go-session-client/internal/errors"
)

// Inspector validates bearer tokens locally, without network calls or
// signature checks. Decoded expiries are memoized per raw token string; the
// cache is unbounded and only shrinks through Evict and Clear.
type Inspector struct {
	parser  *jwtlib.Parser
	nowFunc func() time.Time

	mu     sync.RWMutex
	expiry map[string]int64 // raw token -> exp in epoch milliseconds
}

type InspectorOption func(*Inspector)

// WithNowFunc overrides the clock used by IsExpired.
func WithNowFunc(now func() time.Time) InspectorOption {
	return func(i *Inspector) {
		i.nowFunc = now
	}
}

func NewInspector(options ...InspectorOption) *Inspector {
	i := &Inspector{
		parser: jwtlib.NewParser(),
		expiry: make(map[string]int64),
	}
	for _, opt := range options {
		opt(i)
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// IsWellFormed reports whether token has three dot separated segments and a
// payload that decodes into a JSON claim set.
func (i *Inspector) IsWellFormed(token string) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	_, err := i.claims(token)
	return err == nil
}

// DecodeExpiry returns the token's exp claim in epoch milliseconds.
func (i *Inspector) DecodeExpiry(token string) (int64, error) {
	i.mu.RLock()
	exp, ok := i.expiry[token]
	i.mu.RUnlock()
	if ok {
		return exp, nil
	}

	if strings.Count(token, ".") != 2 {
		return 0, fmt.Errorf("%w: expected 3 segments", errs.ErrMalformedToken)
	}
	claims, err := i.claims(token)
	if err != nil {
		return 0, err
	}
	expTime, err := claims.GetExpirationTime()
	if err != nil {
		return 0, fmt.Errorf("%w: exp claim: %v", errs.ErrMalformedToken, err)
	}
	if expTime == nil {
		return 0, fmt.Errorf("%w: missing exp claim", errs.ErrMalformedToken)
	}

	exp = expTime.Unix() * 1000
	i.mu.Lock()
	i.expiry[token] = exp
	i.mu.Unlock()
	return exp, nil
}

// IsExpired is true for an empty or malformed token, or one whose exp is not
// in the future.
func (i *Inspector) IsExpired(token string) bool {
	if token == "" {
		return true
	}
	exp, err := i.DecodeExpiry(token)
	if err != nil {
		return true
	}
	return exp <= i.nowFunc().UnixMilli()
}

// IsValid is IsWellFormed && !IsExpired.
func (i *Inspector) IsValid(token string) bool {
	return i.IsWellFormed(token) && !i.IsExpired(token)
}

// Evict drops a superseded token from the decode cache.
func (i *Inspector) Evict(token string) {
	if token == "" {
		return
	}
	i.mu.Lock()
	delete(i.expiry, token)
	i.mu.Unlock()
}

func (i *Inspector) Clear() {
	i.mu.Lock()
	i.expiry = make(map[string]int64)
	i.mu.Unlock()
}

// Cached reports whether token's expiry is currently memoized.
func (i *Inspector) Cached(token string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.expiry[token]
	return ok
}

func (i *Inspector) claims(token string) (jwtlib.MapClaims, error) {
	claims := jwtlib.MapClaims{}
	_, _, err := i.parser.ParseUnverified(token, claims)
	// An unknown alg still leaves a decoded claim set; only structure matters here.
	if err != nil && !errors.Is(err, jwtlib.ErrTokenUnverifiable) {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
	return claims, nil
}
