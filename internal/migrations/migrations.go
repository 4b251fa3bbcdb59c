// Package migrations embeds the goose SQL migrations for every supported SQL dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect selects a migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// FS returns the migration files of one dialect rooted at their directory.
func FS(d Dialect) (fs.FS, error) {
	switch d {
	case Postgres, SQLite:
		return fs.Sub(files, string(d))
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", d)
	}
}

// Up applies every pending migration and logs each one.
func Up(ctx context.Context, db *sql.DB, d Dialect, logger zerolog.Logger) error {
	fsys, err := FS(d)
	if err != nil {
		return err
	}
	gooseDialect := goose.DialectPostgres
	if d == SQLite {
		gooseDialect = goose.DialectSQLite3
	}
	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply %s migrations: %w", d, err)
	}
	for _, r := range results {
		logger.Info().
			Str("module", "migrations").
			Str("dialect", string(d)).
			Int64("version", r.Source.Version).
			Dur("took", r.Duration).
			Msg("migration applied")
	}
	return nil
}
