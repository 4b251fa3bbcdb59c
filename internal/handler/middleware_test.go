package handler

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/library-service/internal/service"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer"))
	assert.Empty(t, bearerToken(""))
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"a"`, `"a"`))
	assert.True(t, etagMatches(`"x", W/"a"`, `"a"`))
	assert.True(t, etagMatches(`*`, `"a"`))
	assert.False(t, etagMatches(`"b"`, `"a"`))
	assert.False(t, etagMatches(``, `"a"`))
}

func TestIPRateLimiter_PerClientAndRefill(t *testing.T) {
	l := NewIPRateLimiter(60, 2) // one token per second
	base := time.Now()
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per client")

	l.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	l := NewIPRateLimiter(60, 1)
	base := time.Now()
	l.now = func() time.Time { return base }
	l.Allow("10.0.0.1")

	l.now = func() time.Time { return base.Add(11 * time.Minute) }
	l.Allow("10.0.0.2")
	assert.Len(t, l.clients, 1)
}

func TestBindError(t *testing.T) {
	var req service.BorrowInput
	err := bindError(json.Unmarshal([]byte(`{"member_id":"x"}`), &req))
	require.ErrorIs(t, err, service.ErrInvalidInput)
	fes := service.FieldErrors(err)
	require.Len(t, fes, 1)
	assert.Equal(t, "member_id", fes[0].Field)
	assert.Equal(t, "must be int64", fes[0].Message)

	fes = service.FieldErrors(bindError(io.EOF))
	require.Len(t, fes, 1)
	assert.Equal(t, "body", fes[0].Field)

	err = bindError(errors.New("boom"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Empty(t, service.FieldErrors(err))
}
