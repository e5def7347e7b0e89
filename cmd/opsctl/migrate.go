package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/finishpro/admin-backend/pkg/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply and inspect database migrations",
	Long: `Runs the goose migrations compiled into opsctl against the configured
database. Pass --dir to run migrations from a directory on disk instead.`,
	Example: `  opsctl migrate up
  opsctl migrate status
  opsctl migrate to 20260105090400
  opsctl migrate create add_invoice_notes`,
}

var migrateDir string

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer, _ []string) error {
		results, err := m.Up(ctx)
		writeResults(out, results)
		return err
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer, _ []string) error {
		result, err := m.Down(ctx)
		if result != nil {
			writeResults(out, []*goose.MigrationResult{result})
		}
		return err
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer, _ []string) error {
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		return writeStatuses(out, statuses)
	}),
}

var migrateToCmd = &cobra.Command{
	Use:   "to <YYYYMMDDHHMMSS>",
	Short: "Migrate up or down to an exact version",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator, out io.Writer, args []string) error {
		results, err := m.To(ctx, args[0])
		writeResults(out, results)
		return err
	}),
}

var migrateCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a timestamped SQL migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrateDir
		if dir == "" {
			dir = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(dir, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "created", path)
		return nil
	},
}

var migrateValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check migration file names and goose markers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := migrate.Validate(migrationSource()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().StringVar(&migrateDir, "dir", "", "read migrations from this directory instead of the embedded set")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateToCmd, migrateCreateCmd, migrateValidateCmd)
}

func migrationSource() fs.FS {
	if migrateDir == "" {
		return migrate.Embedded()
	}
	return os.DirFS(migrateDir)
}

func withMigrator(run func(ctx context.Context, m *migrate.Migrator, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, closeFn, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		sqlDB, err := rt.db.SQL()
		if err != nil {
			return fmt.Errorf("sql handle: %w", err)
		}
		migrator, err := migrate.New(sqlDB, migrationSource())
		if err != nil {
			return err
		}
		ctx := rt.logg.WithFields(cmd.Context(), map[string]any{"cmd": cmd.Name(), "dir": migrateDir})
		rt.logg.Info(ctx, "running migrations")
		return run(ctx, migrator, cmd.OutOrStdout(), args)
	}
}

func writeResults(w io.Writer, results []*goose.MigrationResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no migrations to run")
		return
	}
	for _, r := range results {
		status := "OK"
		if r.Error != nil {
			status = "FAILED: " + r.Error.Error()
		}
		fmt.Fprintf(w, "%-4s %d %s (%s) %s\n", r.Direction, r.Source.Version, r.Source.Path, r.Duration.Round(time.Millisecond), status)
	}
}

func writeStatuses(w io.Writer, statuses []*goose.MigrationStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	return tw.Flush()
}
