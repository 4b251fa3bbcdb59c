package config

import (
	"time"

	"github.com/maxviazov/library-service/internal/logger"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App        AppConfig           `mapstructure:"app"`
	Logger     logger.LoggerConfig `mapstructure:"logger" validate:"-"`
	Storage    StorageConfig       `mapstructure:"storage"`
	Postgres   PostgresConfig      `mapstructure:"postgres" validate:"-"`
	Pagination PaginationConfig    `mapstructure:"pagination"`
	HTTP       HTTPConfig          `mapstructure:"http"`
	Auth       AuthConfig          `mapstructure:"auth"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env" validate:"oneof=dev test staging prod"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	// Seed loads the sample library on startup when the store is empty.
	Seed bool `mapstructure:"seed"`
}

// PostgresConfig is validated only when the postgres driver is selected.
type PostgresConfig struct {
	Host              string `mapstructure:"host" validate:"required"`
	Port              int    `mapstructure:"port" validate:"min=1,max=65535"`
	User              string `mapstructure:"user" validate:"required"`
	Password          string `mapstructure:"password" validate:"required"`
	DBName            string `mapstructure:"db" validate:"required"`
	SSLMode           string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32  `mapstructure:"max_conns" validate:"min=1"`
	MinConns          int32  `mapstructure:"min_conns" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`   // seconds
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`  // seconds
	HealthCheckPeriod int    `mapstructure:"health_check_period"` // seconds
}

type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit" validate:"min=1,ltefield=MaxLimit"`
	MaxLimit     int `mapstructure:"max_limit" validate:"min=1"`
}

type HTTPConfig struct {
	// CacheMaxAge feeds Cache-Control: public, max-age=N on cacheable collections.
	CacheMaxAge     int           `mapstructure:"cache_max_age" validate:"min=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	AccessSecret    string        `mapstructure:"access_secret" validate:"min=32"`
	RefreshSecret   string        `mapstructure:"refresh_secret" validate:"min=32,nefield=AccessSecret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl" validate:"gt=0"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl" validate:"gtfield=AccessTokenTTL"`
	// LoginRate is the sustained number of login attempts per minute allowed per client IP.
	LoginRate  float64      `mapstructure:"login_rate" validate:"gt=0"`
	LoginBurst int          `mapstructure:"login_burst" validate:"min=1"`
	Users      []UserConfig `mapstructure:"users" validate:"dive"`
}

// UserConfig describes one account. PasswordHash (bcrypt) wins over Password when both are set.
type UserConfig struct {
	Username     string   `mapstructure:"username" validate:"required"`
	Password     string   `mapstructure:"password" validate:"required_without=PasswordHash"`
	PasswordHash string   `mapstructure:"password_hash"`
	Role         string   `mapstructure:"role" validate:"oneof=user admin"`
	Scopes       []string `mapstructure:"scopes" validate:"dive,oneof=read:books write:books delete:books"`
}
