// Package auth issues and checks the JWTs that guard write endpoints.
package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// TokenPair is the login response. Refresh only returns a new access token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Service ties the user directory to the token service.
type Service struct {
	users  *Directory
	tokens *TokenService
	log    zerolog.Logger
}

func NewService(users *Directory, tokens *TokenService, logger zerolog.Logger) *Service {
	l := logger.With().Str("module", "auth").Str("component", "service").Logger()
	return &Service{users: users, tokens: tokens, log: l}
}

func (s *Service) Login(_ context.Context, username, password string) (TokenPair, error) {
	u, err := s.users.Authenticate(username, password)
	if err != nil {
		s.log.Info().Str("username", username).Msg("login rejected")
		return TokenPair{}, err
	}
	access, err := s.tokens.Issue(u, TokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.Issue(u, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	s.log.Info().Str("username", u.Username).Strs("scopes", u.Scopes).Msg("login succeeded")
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh exchanges a valid refresh token for a new access token carrying the user's current scopes.
func (s *Service) Refresh(_ context.Context, refreshToken string) (TokenPair, error) {
	c, err := s.tokens.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	u, ok := s.users.Lookup(c.Subject)
	if !ok {
		return TokenPair{}, ErrInvalidToken
	}
	access, err := s.tokens.Issue(u, TokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

func (s *Service) Logout(_ context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	c, err := s.tokens.Revoke(token)
	if err != nil {
		return err
	}
	s.log.Info().Str("username", c.Subject).Str("token_type", c.TokenType).Msg("token revoked")
	return nil
}

// Authenticate validates an access token and, when scope is non-empty, requires it.
func (s *Service) Authenticate(_ context.Context, accessToken, scope string) (Claims, error) {
	if accessToken == "" {
		return Claims{}, ErrMissingToken
	}
	c, err := s.tokens.Validate(accessToken, TokenTypeAccess)
	if err != nil {
		if !errors.Is(err, ErrExpiredToken) {
			s.log.Debug().Err(err).Msg("access token rejected")
		}
		return Claims{}, err
	}
	if scope != "" && !c.HasScope(scope) {
		return c, ErrForbidden
	}
	return c, nil
}
