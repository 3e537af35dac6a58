package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/service/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <learner-id>",
		Short: "Print an access token for a learner",
		Long: "Print a signed access token for the learner UUID. Learner accounts are " +
			"managed elsewhere; this is for operators and local development.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			learnerID, err := uuid.Parse(args[0])
			if err != nil || learnerID == uuid.Nil {
				return fmt.Errorf("invalid learner id %q", args[0])
			}
			if err := opts.load(cmd.ErrOrStderr()); err != nil {
				return err
			}

			jwtService, err := auth.NewJWTService(opts.cfg.Auth)
			if err != nil {
				return fmt.Errorf("failed to initialize JWT service: %w", err)
			}
			token, err := jwtService.GenerateToken(cmd.Context(), learnerID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
