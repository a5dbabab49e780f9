package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"loyalty/internal/config"
	"loyalty/internal/logging"
	"loyalty/internal/repository"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the rewards database schema",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		gooseCmd("up", "Apply all pending migrations"),
		gooseCmd("down", "Roll back the most recent migration"),
		gooseCmd("status", "Show the status of every migration"),
		gooseCmd("redo", "Roll back and re-apply the most recent migration"),
		gooseCmd("version", "Print the current schema version"),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func gooseCmd(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logging.Setup(cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			if err := repository.RunMigrations(ctx, cfg.DSN(), command); err != nil {
				return err
			}
			fmt.Printf("migration %q finished successfully\n", command)
			return nil
		},
	}
}
