// Package auth issues and verifies the HS256 bearer tokens that guard the
// HTTP bridge. It is a leaf package; the secret is always passed in.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of tokens minted without an explicit TTL.
const DefaultTTL = 24 * time.Hour

// Issuer is the iss claim of every token this gateway mints.
const Issuer = "tron-mcp"

var (
	ErrEmptySecret = errors.New("jwt secret is empty")
	ErrEmptyToken  = errors.New("token is empty")
	ErrInvalid     = errors.New("invalid token")
)

// Claims carries the standard claims only; Subject names the caller.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer mints and verifies tokens with one shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed token for subject. ttl <= 0 means DefaultTTL.
func (s *Signer) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify parses token and checks signature, expiry and issuer.
func (s *Signer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		// HMAC only; rejects alg substitution.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
