package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/phrazzld/kotoba-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <command> [args...]",
		Short: "Run database migrations",
		Long: "Run goose migrations against the configured database.\n\nCommands: " +
			strings.Join(postgres.MigrationCommands, ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := args[0]
			if !slices.Contains(postgres.MigrationCommands, command) {
				return fmt.Errorf("unknown migration command %q (want one of %s)",
					command, strings.Join(postgres.MigrationCommands, ", "))
			}
			if err := opts.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if opts.cfg.Database.URL == "" {
				return fmt.Errorf("database url is required for migrations")
			}

			db, err := setupAppDatabase(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					opts.logger.Error("error closing database connection", "error", err)
				}
			}()

			return postgres.RunMigrations(cmd.Context(), db, command, opts.logger, args[1:]...)
		},
	}

	cmd.AddCommand(newMigrateCreateCmd(opts))
	return cmd
}

func newMigrateCreateCmd(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Creating a file needs no configuration.
			log := opts.logger
			if log == nil {
				log = newCLILogger(cmd.ErrOrStderr())
			}
			return postgres.CreateMigration(dir, args[0], log)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "internal/platform/postgres/migrations",
		"Directory to write the migration into")
	return cmd
}
