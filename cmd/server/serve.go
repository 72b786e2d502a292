package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maeuln/community/internal/auth"
	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/region"
	"github.com/maeuln/community/internal/server"
	"github.com/maeuln/community/internal/worker"
)

var noWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

With REDIS_URL set, comment and report triggers are queued on asynq and the
reminder sweep is scheduled there; the worker runs in this process unless
--no-worker is given. Without Redis every trigger runs in-process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	regions, err := region.Load()
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	var google *auth.GoogleProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/SECRET not set; Google sign-in is disabled")
	}

	notify, moderate, triggers := rt.triggers()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var dispatcher event.Dispatcher
	if cfg.RedisURL != "" {
		client, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		dispatcher = client

		g.Go(func() error { return rt.relay.Run(ctx) })

		if !noWorker {
			if err := startEmbeddedWorker(g, ctx, triggers); err != nil {
				return abort(cancel, g, err)
			}
		}
	} else {
		logger.Warn("REDIS_URL not set; triggers run in-process")
		dispatcher = event.NewInline(notify, moderate, logger)

		g.Go(func() error {
			return worker.RunTicker(ctx, worker.TickerInterval(cfg.ReminderSchedule), notify, logger)
		})
	}

	srv := server.New(server.Config{
		Port:          cfg.Port,
		SecureCookies: cfg.IsProduction(),
		AdminEmails:   cfg.AdminEmails,
	}, server.Deps{
		DB:         rt.db,
		Broker:     rt.broker,
		Tokens:     tokens,
		Passwords:  auth.NewPasswordService(),
		Google:     google,
		Images:     rt.images,
		Regions:    regions,
		Dispatcher: dispatcher,
	}, logger)

	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// abort stops everything already running on g and returns err once it has
// finished.
func abort(cancel context.CancelFunc, g *errgroup.Group, err error) error {
	cancel()
	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		logger.Warn("stopping after startup failure", slog.String("error", werr.Error()))
	}
	return err
}

// startEmbeddedWorker runs the asynq worker and the reminder scheduler
// until ctx is done.
func startEmbeddedWorker(g *errgroup.Group, ctx context.Context, triggers worker.Triggers) error {
	stopWorker, err := worker.Start(cfg.RedisURL, triggers, logger)
	if err != nil {
		return err
	}
	stopScheduler, err := worker.StartScheduler(cfg.RedisURL, cfg.ReminderSchedule, logger)
	if err != nil {
		stopWorker()
		return err
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("stopping embedded worker")
		stopScheduler()
		stopWorker()
		return nil
	})
	logger.Info("embedded worker running", slog.String("schedule", cfg.ReminderSchedule))
	return nil
}
