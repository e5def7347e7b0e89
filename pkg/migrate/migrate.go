// Package migrate wraps goose around the SQL migrations shipped with the
// binaries.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// SourceDir is where new migration files are written, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator applies migrations from one source to one database. It never closes
// the database handle it was given.
type Migrator struct {
	provider *goose.Provider
}

// New builds a Migrator over fsys, or the embedded migrations when fsys is nil.
func New(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	if fsys == nil {
		fsys = Embedded()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration and returns what ran.
func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return results, fmt.Errorf("goose up: %w", err)
	}
	return results, nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) (*goose.MigrationResult, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return result, fmt.Errorf("goose down: %w", err)
	}
	return result, nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// To moves the schema up or down until version is the latest applied
// migration. version is the YYYYMMDDHHMMSS prefix of a migration file.
func (m *Migrator) To(ctx context.Context, version string) ([]*goose.MigrationResult, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || len(version) != versionLen {
		return nil, fmt.Errorf("invalid version %q: expected YYYYMMDDHHMMSS", version)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("current db version: %w", err)
	}

	switch {
	case target > current:
		return m.provider.UpTo(ctx, target)
	case target < current:
		return m.provider.DownTo(ctx, target)
	}
	return nil, nil
}
