package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/phrazzld/kotoba-api/internal/config"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/spf13/cobra"
)

// rootOptions is the state shared by every subcommand.
type rootOptions struct {
	envFile string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "kotoba",
		Short:         "Kanji and vocabulary lesson and review server",
		Long:          "kotoba serves lesson progression and spaced-repetition reviews for kanji and vocabulary learners.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"Path to a dotenv file loaded before configuration (ignored when missing)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

// load reads the dotenv file and configuration and builds the logger.
// Log output goes to w so commands that print results keep stdout clean.
func (o *rootOptions) load(w io.Writer) error {
	if o.cfg != nil {
		return nil
	}
	if o.envFile != "" {
		// Variables already in the environment win over the file.
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	o.cfg = cfg
	o.logger = logger.Setup(cfg.Server, w)

	o.logger.Debug("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("database_url_present", cfg.Database.URL != ""))
	return nil
}

// newCLILogger is the logger of commands that run without configuration.
func newCLILogger(w io.Writer) *slog.Logger {
	return logger.New(config.ServerConfig{LogLevel: "info", LogFormat: logger.FormatText}, w)
}
