// Package tokenfake mints signed test JWTs.
package tokenfake

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var secret = []byte("tokenfake-secret")

// Expiring returns an HS256 token whose exp is exp. Extra claims are merged in.
func Expiring(exp time.Time, extra ...jwtlib.MapClaims) string {
	claims := jwtlib.MapClaims{
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
		"jti": uuid.NewString(),
	}
	for _, e := range extra {
		for k, v := range e {
			claims[k] = v
		}
	}
	return sign(claims)
}

// Valid returns a token expiring in an hour.
func Valid() string {
	return Expiring(time.Now().Add(time.Hour))
}

// Expired returns a token that expired a minute ago.
func Expired() string {
	return Expiring(time.Now().Add(-time.Minute))
}

// WithoutExpiry returns a well formed token that carries no exp claim.
func WithoutExpiry() string {
	return sign(jwtlib.MapClaims{"sub": "no-exp", "jti": uuid.NewString()})
}

func sign(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}
