// Package main is the entry point for the 마을N community server.
//
// The main package stays minimal: it reads configuration, builds the
// long-lived dependencies and starts the application. All actual logic
// lives in the internal packages.
//
// COMMANDS:
//
//	server serve    → HTTP API (+ embedded task worker when REDIS_URL is set)
//	server worker   → standalone task worker and reminder scheduler
//	server migrate  → apply database migrations and exit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maeuln/community/internal/config"
	"github.com/maeuln/community/internal/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "마을N community backend",
	Long: `마을N is a localized community network: city-scoped posts and news,
follows, comments, a personal calendar and notifications.

Configuration comes from the environment (and .env when present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		logger = logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
		for _, w := range cfg.Warnings {
			logger.Warn(w)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "Do not run the task worker inside the API process")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	// SIGINT/SIGTERM cancel the context every command runs under, which
	// starts the graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
