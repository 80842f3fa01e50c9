package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"itam-api/internal/store/postgres/migrations"
)

// OpenMigrationDB opens the database/sql handle goose runs on.
func OpenMigrationDB(dsn string) (*sql.DB, error) {
	return goose.OpenDBWithDriver("postgres", dsn)
}

func prepareGoose() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.DownContext(ctx, db, ".")
}

// MigrationStatus prints the state of every migration through goose's logger.
func MigrationStatus(ctx context.Context, db *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, ".")
}

// MigrateDSN opens dsn, migrates it up and closes the handle.
func MigrateDSN(ctx context.Context, dsn string) error {
	db, err := OpenMigrationDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return Migrate(ctx, db)
}
