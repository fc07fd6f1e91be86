package cli

import (
	"fmt"

	"github.com/attendance-tracker-api/internal/config"
	"github.com/attendance-tracker-api/internal/database"
	"github.com/attendance-tracker-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newMigrateCommand manages the Postgres schema. It reads the same
// environment (and .env) as the server rather than the CSV flags.
func newMigrateCommand(opts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
		Long: `migrate runs the SQL migrations against the database configured by
DB_HOST, DB_NAME and friends. It requires STORAGE_BACKEND=postgres.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("unknown migrate direction %q (up, down)", args[0])
		},
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: MIGRATIONS_PATH)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withDatabase(cmd, path, func(db *database.DB, dir string) error {
					if err := db.RunMigrations(dir); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withDatabase(cmd, path, func(db *database.DB, dir string) error {
					if err := db.MigrateDown(dir); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Last migration rolled back.")
					return nil
				})
			},
		},
	)

	return cmd
}

func (o *RootOptions) withDatabase(cmd *cobra.Command, path string, fn func(db *database.DB, dir string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate needs STORAGE_BACKEND=%s, got %q", config.BackendPostgres, cfg.Storage.Backend)
	}
	if path == "" {
		path = cfg.Storage.MigrationsPath
	}

	log := zerolog.Nop()
	if o.Verbose {
		log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, logger.FormatPretty)
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db, path)
}
