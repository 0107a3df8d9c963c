package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed validity window for issued credentials.
const TokenTTL = 2 * time.Hour

var (
	// ErrMissingCredential reports that no bearer credential was presented.
	ErrMissingCredential = errors.New("auth: missing credential")
	// ErrInvalidCredential reports a malformed, expired, or forged
	// credential. Both errors surface to clients as a 401.
	ErrInvalidCredential = errors.New("auth: invalid credential")
)

// Claims is the identity payload carried in a signed credential. Email is
// the only field authorization relies on.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 credentials.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer from the shared signing secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Issue signs a credential asserting the given identity, valid for TokenTTL.
func (s *Signer) Issue(email, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a credential, returning its claims. Any
// failure, including an unexpected signing method, maps to
// ErrInvalidCredential.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: no email claim", ErrInvalidCredential)
	}
	return claims, nil
}
