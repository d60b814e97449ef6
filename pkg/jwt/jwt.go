package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity claims the bridge reads from an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ValidatorInterface validates bearer tokens issued by the identity provider.
type ValidatorInterface interface {
	Validate(token string) (*Claims, error)
}

// Validator checks HMAC-signed tokens against a shared secret.
type Validator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewValidator returns a Validator. issuer and audience are checked only when non-empty.
func NewValidator(secret, issuer, audience string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	return &Validator{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// Validate parses token, verifies its signature and expiry, and returns its claims.
// The subject claim is required.
func (v *Validator) Validate(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
