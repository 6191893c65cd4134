package devbackend

import (
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Creator mints access and refresh tokens for dev accounts.
type Creator struct {
	signer     *Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCreator(signer *Signer, accessTTL, refreshTTL time.Duration) *Creator {
	return &Creator{
		signer:     signer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// CreateAccessToken mints a short lived bearer token for account.
func (c *Creator) CreateAccessToken(account *Account) (string, error) {
	claims := c.baseClaims(account, tokenTypeAccess, c.accessTTL)
	claims["username"] = account.Username
	claims["user_type"] = string(account.Role)
	return c.sign(claims)
}

// CreateRefreshToken mints a refresh token and returns it with its jti.
func (c *Creator) CreateRefreshToken(account *Account) (token, jti string, err error) {
	claims := c.baseClaims(account, tokenTypeRefresh, c.refreshTTL)
	token, err = c.sign(claims)
	if err != nil {
		return "", "", err
	}
	return token, claims["jti"].(string), nil
}

func (c *Creator) baseClaims(account *Account, tokenType string, ttl time.Duration) jwtlib.MapClaims {
	now := NowTimeFunc()
	return jwtlib.MapClaims{
		"sub":        strconv.FormatInt(account.ID, 10), // Account id
		"token_type": tokenType,                         // access or refresh
		"iat":        now.Unix(),                        // Issued at
		"exp":        now.Add(ttl).Unix(),               // Expiry
		"jti":        uuid.New().String(),               // Unique id, used to rotate refresh tokens
	}
}

func (c *Creator) sign(claims jwtlib.MapClaims) (string, error) {
	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign %v token: %w", claims["token_type"], err)
	}
	return signed, nil
}
