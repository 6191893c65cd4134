package devbackend

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Signer signs and verifies the HS256 tokens handed out by the dev backend.
type Signer struct {
	secret []byte
	parser *jwtlib.Parser
}

func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		parser: jwtlib.NewParser(
			jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
			jwtlib.WithExpirationRequired(),
			jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
		),
	}
}

func (s *Signer) Sign(claims jwtlib.MapClaims) (string, error) {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("Signer.Sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (s *Signer) Verify(raw string) (jwtlib.MapClaims, error) {
	claims := jwtlib.MapClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, s.key); err != nil {
		return nil, fmt.Errorf("Signer.Verify: %w", err)
	}
	return claims, nil
}

func (s *Signer) key(token *jwtlib.Token) (any, error) {
	if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
