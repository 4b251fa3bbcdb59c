package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/config"
	"github.com/maxviazov/library-service/internal/handler"
	"github.com/maxviazov/library-service/internal/logger"
	"github.com/maxviazov/library-service/internal/migrations"
	"github.com/maxviazov/library-service/internal/repository"
	"github.com/maxviazov/library-service/internal/repository/memory"
	"github.com/maxviazov/library-service/internal/repository/postgres"
	"github.com/maxviazov/library-service/internal/repository/sqlite"
	"github.com/maxviazov/library-service/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load application config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config loading failed: %v", err)
	}

	// Logger inherits app identity unless configured explicitly.
	if cfg.Logger.Env == "" {
		cfg.Logger.Env = cfg.App.Env
	}
	if cfg.Logger.ServiceName == "" {
		cfg.Logger.ServiceName = cfg.App.Name
	}
	if cfg.Logger.ServiceVersion == "" {
		cfg.Logger.ServiceVersion = cfg.App.Version
	}
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}
	appLogger.Info().Msg("✅ Logger initialized successfully")

	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("service stopped with error")
	}
	appLogger.Info().Msg("👋 Service stopped")
}

func run(cfg *config.Config, appLogger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error().Err(err).Msg("close store")
		}
	}()

	if cfg.Storage.Seed {
		if _, err := service.Seed(ctx, store, appLogger); err != nil {
			return err
		}
	}

	users, err := auth.NewDirectory(cfg.Auth.Users, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := handler.NewEngine(handler.Deps{
		Store:       store,
		Driver:      cfg.Storage.Driver,
		Books:       service.NewBookService(store.Books(), cfg.Pagination, appLogger),
		Loans:       service.NewLoanService(store.Loans(), cfg.Pagination, appLogger),
		Auth:        auth.NewService(users, tokens, appLogger),
		Limiter:     handler.NewIPRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst),
		CacheMaxAge: cfg.HTTP.CacheMaxAge,
	}, handler.RequestLogger(appLogger))

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Msg("🚀 Service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		appLogger.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore builds the configured backend. SQL backends get their schema migrated first.
func openStore(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.Storage.SQLitePath, appLogger)
	case config.DriverPostgres:
		if err := migratePostgres(ctx, cfg.Postgres, appLogger); err != nil {
			return nil, err
		}
		pool, err := repository.OpenPostgres(ctx, cfg.Postgres, &appLogger)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	default:
		return memory.New(), nil
	}
}

// migratePostgres runs goose through database/sql since goose does not speak pgxpool.
func migratePostgres(ctx context.Context, cfg config.PostgresConfig, appLogger zerolog.Logger) error {
	db, err := sql.Open("pgx", repository.PostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("open postgres for migrations: %w", err)
	}
	defer db.Close()
	if err := migrations.Up(ctx, db, migrations.Postgres, appLogger); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}
