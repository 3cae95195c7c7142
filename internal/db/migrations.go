package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/frankbot/frank/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// migrationLockID keys the advisory lock that serialises migration runs
// from several instances starting at once.
const migrationLockID = 0x6672616e6b // "frank"

// RunMigrations applies the embedded migrations that have not run yet.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := ApplyMigrations(ctx, pool, migrations.FS)
	return err
}

// ApplyMigrations applies every pending *.sql file in fsys in name order and
// returns the names it applied. Each file and its schema_migrations row
// commit in one transaction, so a failing file leaves neither behind.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]string, error) {
	log.Info().Msg("Running database migrations...")

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	names, err := migrationFiles(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	var applied []string
	for _, name := range names {
		ran, err := applyMigration(ctx, pool, fsys, name)
		if err != nil {
			return applied, fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		if ran {
			log.Info().Str("migration", name).Msg("Applied migration")
			applied = append(applied, name)
		} else {
			log.Debug().Str("migration", name).Msg("Migration already applied, skipping")
		}
	}

	log.Info().Int("applied", len(applied)).Msg("Migrations up to date")
	return applied, nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// applyMigration runs one file unless schema_migrations already lists it.
// The check happens under the advisory lock, inside the same transaction.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, name string) (ran bool, err error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(migrationLockID)); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}

	var done bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", name).Scan(&done); err != nil {
		return false, err
	}
	if done {
		return false, tx.Commit(ctx)
	}

	// Multi-statement files need the simple query protocol.
	if _, err := tx.Conn().PgConn().Exec(ctx, string(content)).ReadAll(); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}
