package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	gocache "github.com/patrickmn/go-cache"
)

// ErrInvalidToken covers bad signature, malformed structure, expiry and
// revocation. Callers map it to a 401.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the session token claims
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed session tokens. Revoked token IDs
// are held in an in-process denylist until their natural expiry.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	denylist *gocache.Cache
}

// NewTokenService creates a token service. The secret must be non-empty;
// config.Load already refuses to start without one.
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret must not be empty")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	return &TokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
		// Denylist entries carry their own TTL; the janitor interval only
		// controls when expired entries are swept.
		denylist: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}, nil
}

// Issue creates a new signed session token for the given identity
func (s *TokenService) Issue(email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a session token and returns its claims
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if _, revoked := s.denylist.Get(claims.ID); revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	return claims, nil
}

// Revoke denylists a token by ID until the token's own expiry, after which
// the entry is dropped
func (s *TokenService) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	ttl := s.lifetime
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return // already expired, nothing to deny
	}
	s.denylist.Set(claims.ID, struct{}{}, ttl)
}
