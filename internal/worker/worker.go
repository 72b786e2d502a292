// Package worker runs the server-side triggers on an asynq queue: comment
// notifications, report moderation and the periodic reminder sweep.
//
// Without Redis the same triggers run in-process (event.Inline for writes,
// RunTicker for reminders).
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/maeuln/community/internal/event"
)

// Concurrency is the number of tasks processed at once.
const Concurrency = 5

// Reminder sweeps upcoming events.
type Reminder interface {
	RemindUpcoming(ctx context.Context, now time.Time) (int, error)
}

// Triggers are the reactions the worker runs.
type Triggers struct {
	Comments event.CommentHandler
	Reports  event.ReportHandler
	Reminder Reminder
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger.
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start starts the asynq server in non-blocking mode and returns a stop
// function for coordinated shutdown.
func Start(redisURL string, triggers Triggers, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("worker: parse redis url: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     Concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	if err := srv.Start(NewMux(triggers, logger, time.Now)); err != nil {
		return nil, fmt.Errorf("worker: start server: %w", err)
	}

	logger.Info("worker started", slog.Int("concurrency", Concurrency))
	return srv.Shutdown, nil
}

// Run starts the server and blocks until ctx is done.
func Run(ctx context.Context, redisURL string, triggers Triggers, logger *slog.Logger) error {
	stop, err := Start(redisURL, triggers, logger)
	if err != nil {
		return err
	}
	<-ctx.Done()
	stop()
	return nil
}

// NewMux routes each task type to its trigger.
func NewMux(triggers Triggers, logger *slog.Logger, now func() time.Time) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCommentCreated, handleCommentCreated(logger, triggers.Comments))
	mux.HandleFunc(TaskReportCreated, handleReportCreated(logger, triggers.Reports))
	mux.HandleFunc(TaskRemindUpcoming, handleRemindUpcoming(logger, triggers.Reminder, now))
	return mux
}

func handleCommentCreated(logger *slog.Logger, h event.CommentHandler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var evt event.CommentEvent
		if err := json.Unmarshal(task.Payload(), &evt); err != nil || evt.PostID == "" {
			logger.Error("invalid comment payload", slog.String("payload", string(task.Payload())))
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		return h.CommentCreated(ctx, evt)
	}
}

func handleReportCreated(logger *slog.Logger, h event.ReportHandler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var evt event.ReportEvent
		if err := json.Unmarshal(task.Payload(), &evt); err != nil || evt.PostID == "" {
			logger.Error("invalid report payload", slog.String("payload", string(task.Payload())))
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		return h.ReportCreated(ctx, evt)
	}
}

func handleRemindUpcoming(logger *slog.Logger, r Reminder, now func() time.Time) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		runID := uuid.NewString()
		start := now()

		n, err := r.RemindUpcoming(ctx, start)
		logger.Info("reminder sweep finished",
			slog.String("run_id", runID),
			slog.Int("reminded", n),
			slog.Duration("took", time.Since(start)),
		)
		return err
	}
}

// makeErrorHandler creates an error handler function with logger closure.
// The last failed attempt of a task is logged as dead.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		msg := "task execution failed"
		if retried >= maxRetry {
			msg = "task exhausted retries"
		}
		logger.Error(msg,
			slog.String("task_type", task.Type()),
			slog.String("error", err.Error()),
			slog.Int("retry_count", retried),
			slog.Int("max_retry", maxRetry),
		)
	}
}
