package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrMalformedToken means the token could not be decoded at all.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken means the token decoded but its signature or issuer is wrong.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token was genuine but its lifetime is over.
	ErrTokenExpired = errors.New("token has expired")
	// ErrEmptySubject is returned when asked to issue a token for no one.
	ErrEmptySubject = errors.New("token subject is required")
	// ErrEmptySecret is returned by NewTokenManager without a signing key.
	ErrEmptySecret = errors.New("token secret is required")
)

// TokenConfig configures a TokenManager. Secret is loaded once at startup.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// TokenManager issues and verifies HS256-signed identity tokens. It holds no
// per-token state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenManager validates cfg and returns a manager.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &TokenManager{secret: secret, ttl: ttl, issuer: cfg.Issuer}, nil
}

// TTL returns the lifetime given to issued tokens.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for identityID, valid from now until now+TTL.
func (m *TokenManager) Issue(identityID string, now time.Time) (string, error) {
	if identityID == "" {
		return "", ErrEmptySubject
	}
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   identityID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature first and the expiry second, returning the
// subject on success. A token is still valid at the exact second it expires.
// Failures are one of ErrMalformedToken, ErrInvalidToken or ErrTokenExpired.
func (m *TokenManager) Verify(token string, now time.Time) (string, error) {
	// Claims are checked below; jwt/v5 treats now == exp as expired.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "", ErrMalformedToken
	default:
		return "", ErrInvalidToken
	}

	if claims.ExpiresAt == nil {
		return "", ErrInvalidToken
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return "", ErrInvalidToken
	}
	if now.After(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	if claims.Subject == "" {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}
