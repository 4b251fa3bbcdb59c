package auth

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/maxviazov/library-service/internal/config"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the validated content of a token.
type Claims struct {
	Subject   string
	Role      string
	Scopes    []string
	TokenType string
	ID        string
	ExpiresAt time.Time
}

// HasScope reports whether the token carries scope.
func (c Claims) HasScope(scope string) bool { return slices.Contains(c.Scopes, scope) }

type jwtClaims struct {
	Role      string   `json:"role,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	TokenType string   `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 tokens. Access and refresh tokens use separate secrets,
// and revoked token ids are remembered until the token would have expired anyway.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) < 32 || len(cfg.RefreshSecret) < 32 {
		return nil, fmt.Errorf("jwt secrets must be at least 32 characters")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	return &TokenService{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		leeway:     30 * time.Second,
		now:        time.Now,
		revoked:    make(map[string]time.Time),
	}, nil
}

func (s *TokenService) key(tokenType string) []byte {
	if tokenType == TokenTypeRefresh {
		return s.refreshKey
	}
	return s.accessKey
}

func (s *TokenService) ttl(tokenType string) time.Duration {
	if tokenType == TokenTypeRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue signs a token of the given type for u.
func (s *TokenService) Issue(u User, tokenType string) (string, error) {
	now := s.now()
	claims := jwtClaims{
		Role:      u.Role,
		Scopes:    u.Scopes,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl(tokenType))),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key(tokenType))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Validate parses a token, checks the signature for its expected type and rejects revoked ids.
func (s *TokenService) Validate(token, tokenType string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.key(tokenType), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if c.TokenType != tokenType {
		return Claims{}, ErrWrongTokenType
	}
	if s.isRevoked(c.ID) {
		return Claims{}, ErrRevokedToken
	}
	out := Claims{
		Subject:   c.Subject,
		Role:      c.Role,
		Scopes:    c.Scopes,
		TokenType: c.TokenType,
		ID:        c.ID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// Revoke accepts either an access or a refresh token and blacklists its id.
func (s *TokenService) Revoke(token string) (Claims, error) {
	c, err := s.Validate(token, TokenTypeAccess)
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrWrongTokenType) {
		c, err = s.Validate(token, TokenTypeRefresh)
	}
	if err != nil {
		return Claims{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp.Add(s.leeway)) {
			delete(s.revoked, id)
		}
	}
	s.revoked[c.ID] = c.ExpiresAt
	return c, nil
}

func (s *TokenService) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}
