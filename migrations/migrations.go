// Package migrations embeds the PostgreSQL schema so `food-picker migrate` works
// regardless of the current working directory.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"food-picker/db"

	"github.com/rs/zerolog"
)

//go:embed *.sql
var migrationsFS embed.FS

// Names lists the embedded migrations in the order they are applied.
func Names() ([]string, error) {
	names, err := fs.Glob(migrationsFS, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs every migration against db.Pool. The statements are idempotent.
func Apply(ctx context.Context, log zerolog.Logger) error {
	if db.Pool == nil {
		return fmt.Errorf("postgres pool is not initialized")
	}
	names, err := Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("migration applied")
	}
	return nil
}
