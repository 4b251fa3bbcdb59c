package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretA = "0123456789abcdef0123456789abcdef-access"
const testSecretB = "0123456789abcdef0123456789abcdef-refresh"

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromYAMLAndEnv(t *testing.T) {
	yaml := `
app:
  name: library-service
  env: test
  port: 18080

logger:
  level: info
  format: json

storage:
  driver: postgres

postgres:
  host: 127.0.0.1
  port: 5432
  sslmode: disable
  max_conns: 5
  min_conns: 1

pagination:
  default_limit: 5
  max_limit: 50

http:
  cache_max_age: 120
  shutdown_timeout: 3s

auth:
  access_token_ttl: 1m
  refresh_token_ttl: 5m
  users:
    - username: admin
      password: "123"
      role: admin
      scopes: [read:books, write:books, delete:books]
`
	path := writeTempConfig(t, yaml)

	t.Setenv("APP_POSTGRES_USER", "testuser")
	t.Setenv("APP_POSTGRES_PASSWORD", "testpass")
	t.Setenv("APP_POSTGRES_DB", "testdb")
	t.Setenv("APP_AUTH_ACCESS_SECRET", testSecretA)
	t.Setenv("APP_AUTH_REFRESH_SECRET", testSecretB)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.App.Port)
	assert.Equal(t, "testuser", cfg.Postgres.User)
	assert.Equal(t, "testpass", cfg.Postgres.Password)
	assert.Equal(t, "testdb", cfg.Postgres.DBName)
	assert.Equal(t, "127.0.0.1", cfg.Postgres.Host)
	assert.Equal(t, int32(5), cfg.Postgres.MaxConns)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	assert.Equal(t, 120, cfg.HTTP.CacheMaxAge)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout, "default applies when absent")
	assert.Equal(t, time.Minute, cfg.Auth.AccessTokenTTL)
	require.Len(t, cfg.Auth.Users, 1)
	assert.Equal(t, []string{"read:books", "write:books", "delete:books"}, cfg.Auth.Users[0].Scopes)
}

func TestLoad_DefaultsToMemoryDriver(t *testing.T) {
	path := writeTempConfig(t, "app:\n  env: dev\n")
	t.Setenv("APP_AUTH_ACCESS_SECRET", testSecretA)
	t.Setenv("APP_AUTH_REFRESH_SECRET", testSecretB)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
}

func TestLoad_MissingPostgresSecretsFails(t *testing.T) {
	yaml := `
storage:
  driver: postgres
postgres:
  host: localhost
`
	path := writeTempConfig(t, yaml)
	t.Setenv("APP_POSTGRES_USER", "")
	t.Setenv("APP_POSTGRES_PASSWORD", "")
	t.Setenv("APP_POSTGRES_DB", "")
	t.Setenv("APP_AUTH_ACCESS_SECRET", testSecretA)
	t.Setenv("APP_AUTH_REFRESH_SECRET", testSecretB)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ShortSecretFails(t *testing.T) {
	path := writeTempConfig(t, "app:\n  env: dev\n")
	t.Setenv("APP_AUTH_ACCESS_SECRET", "short")
	t.Setenv("APP_AUTH_REFRESH_SECRET", testSecretB)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_DefaultLimitAboveMaxFails(t *testing.T) {
	path := writeTempConfig(t, "pagination:\n  default_limit: 200\n  max_limit: 100\n")
	t.Setenv("APP_AUTH_ACCESS_SECRET", testSecretA)
	t.Setenv("APP_AUTH_REFRESH_SECRET", testSecretB)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
