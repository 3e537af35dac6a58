package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var appOpts appOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.load(cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, opts.cfg, opts.logger, appOpts)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&appOpts.memory, "memory", false,
		"Keep all state in memory instead of PostgreSQL (development only)")
	cmd.Flags().StringVar(&appOpts.subjectsFile, "subjects", "",
		"JSON file of subjects to seed the curriculum with at startup")
	return cmd
}
