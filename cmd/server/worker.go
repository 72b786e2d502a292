package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maeuln/community/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the task worker and reminder scheduler",
	Long: `Run the asynq worker that executes comment notifications, report
moderation and the periodic reminder sweep. Requires REDIS_URL.

Run it next to "serve --no-worker" to scale the API and the triggers
separately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisURL == "" {
			return errors.New("worker: REDIS_URL is required")
		}

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		_, _, triggers := rt.triggers()

		stopScheduler, err := worker.StartScheduler(cfg.RedisURL, cfg.ReminderSchedule, logger)
		if err != nil {
			return err
		}
		defer stopScheduler()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return rt.relay.Run(ctx) })
		g.Go(func() error { return worker.Run(ctx, cfg.RedisURL, triggers, logger) })

		if err := g.Wait(); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
		return nil
	},
}
