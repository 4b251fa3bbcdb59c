package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/maxviazov/library-service/internal/config"
)

var testAuthConfig = config.AuthConfig{
	AccessSecret:    strings.Repeat("a", 32),
	RefreshSecret:   strings.Repeat("r", 32),
	AccessTokenTTL:  15 * time.Minute,
	RefreshTokenTTL: 24 * time.Hour,
}

var testUsers = []config.UserConfig{
	{Username: "user1", Password: "123", Role: "user", Scopes: []string{ScopeReadBooks}},
	{Username: "admin", Password: "123", Role: "admin", Scopes: []string{ScopeReadBooks, ScopeWriteBooks, ScopeDeleteBooks}},
}

func newTestService(t *testing.T) (*Service, *TokenService) {
	t.Helper()
	dir, err := NewDirectory(testUsers, bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := NewTokenService(testAuthConfig)
	require.NoError(t, err)
	return NewService(dir, tokens, zerolog.Nop()), tokens
}

func TestDirectory_Authenticate(t *testing.T) {
	dir, err := NewDirectory(testUsers, bcrypt.MinCost)
	require.NoError(t, err)

	u, err := dir.Authenticate("admin", "123")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.True(t, u.HasScope(ScopeDeleteBooks))

	_, err = dir.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = dir.Authenticate("ghost", "123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDirectory_AcceptsPrehashedPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	dir, err := NewDirectory([]config.UserConfig{{Username: "u", PasswordHash: string(hash)}}, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = dir.Authenticate("u", "s3cret")
	assert.NoError(t, err)
}

func TestDirectory_RejectsBadConfig(t *testing.T) {
	_, err := NewDirectory([]config.UserConfig{{Username: "u", Password: "1"}, {Username: "u", Password: "2"}}, bcrypt.MinCost)
	assert.Error(t, err)
	_, err = NewDirectory([]config.UserConfig{{Username: "u", PasswordHash: "not-bcrypt"}}, bcrypt.MinCost)
	assert.Error(t, err)
}

func TestNewTokenService_SecretRules(t *testing.T) {
	cfg := testAuthConfig
	cfg.AccessSecret = "short"
	_, err := NewTokenService(cfg)
	assert.Error(t, err)

	cfg = testAuthConfig
	cfg.RefreshSecret = cfg.AccessSecret
	_, err = NewTokenService(cfg)
	assert.Error(t, err)
}

func TestService_LoginAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "user1", "123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.RefreshToken)

	c, err := svc.Authenticate(ctx, pair.AccessToken, ScopeReadBooks)
	require.NoError(t, err)
	assert.Equal(t, "user1", c.Subject)

	_, err = svc.Authenticate(ctx, pair.AccessToken, ScopeWriteBooks)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Login(ctx, "user1", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pair, err := svc.Login(ctx, "admin", "123")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, pair.RefreshToken, "")
	assert.ErrorIs(t, err, ErrInvalidToken, "signed with the refresh secret")

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, fresh.RefreshToken)
	_, err = svc.Authenticate(ctx, fresh.AccessToken, ScopeDeleteBooks)
	assert.NoError(t, err)
}

func TestService_Expiry(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()
	base := time.Now()
	tokens.now = func() time.Time { return base }

	pair, err := svc.Login(ctx, "user1", "123")
	require.NoError(t, err)

	tokens.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = svc.Authenticate(ctx, pair.AccessToken, "")
	assert.ErrorIs(t, err, ErrExpiredToken)

	// refresh outlives access
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestService_LogoutRevokes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pair, err := svc.Login(ctx, "admin", "123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))
	_, err = svc.Authenticate(ctx, pair.AccessToken, "")
	assert.ErrorIs(t, err, ErrRevokedToken)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken)

	assert.ErrorIs(t, svc.Logout(ctx, ""), ErrMissingToken)
	assert.ErrorIs(t, svc.Logout(ctx, "garbage"), ErrInvalidToken)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	_, tokens := newTestService(t)
	claims := jwtClaims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAuthConfig.AccessSecret))
	require.NoError(t, err)

	_, err = tokens.Validate(signed, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
