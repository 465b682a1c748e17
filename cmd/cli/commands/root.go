// Package commands implements the gitreach command line interface.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alimgiray/gitreach/internal/app"
	"github.com/alimgiray/gitreach/pkg/config"
	"github.com/spf13/cobra"
)

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:          "gitreach",
		Short:        "Discover GitHub contributors and how to reach them",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dbPath != "" {
				config.AppConfig.Database.Path = dbPath
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from DB_PATH)")

	root.AddCommand(
		newScrapeCommand(),
		newExportCommand(),
		newWatchCommand(),
		newRateLimitCommand(),
	)
	return root
}

// withApp wires the application for the duration of fn
func withApp(fn func(a *app.App) error) error {
	a, err := app.New(config.AppConfig)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
