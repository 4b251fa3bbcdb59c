package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password; callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrRevokedToken       = errors.New("token revoked")
	// ErrForbidden means the token is valid but lacks a required scope.
	ErrForbidden = errors.New("insufficient scope")
)
