package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultReminderSchedule runs the reminder sweep every ten minutes.
const DefaultReminderSchedule = "@every 10m"

// StartScheduler registers the periodic reminder sweep and starts the
// scheduler. Returns a stop function for graceful shutdown.
func StartScheduler(redisURL, schedule string, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("worker: parse redis url: %w", err)
	}
	if schedule == "" {
		schedule = DefaultReminderSchedule
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(schedule, NewRemindTask())
	if err != nil {
		return nil, fmt.Errorf("worker: register reminder schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("worker: start scheduler: %w", err)
	}

	logger.Info("scheduler started",
		slog.String("schedule", schedule),
		slog.String("entry_id", entryID),
	)
	return scheduler.Shutdown, nil
}

// RunTicker runs the reminder sweep every interval in-process until ctx is
// done. It is the fallback when no Redis is configured. A failed sweep is
// logged and the next tick tries again.
func RunTicker(ctx context.Context, interval time.Duration, r Reminder, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		n, err := r.RemindUpcoming(ctx, time.Now())
		if err != nil && ctx.Err() == nil {
			logger.Error("reminder sweep failed", slog.String("error", err.Error()))
		}
		if n > 0 {
			logger.Info("reminders sent", slog.Int("count", n))
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}

// TickerInterval returns the interval of an "@every <duration>" schedule,
// or ten minutes for anything else.
func TickerInterval(schedule string) time.Duration {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(schedule), "@every "); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(rest)); err == nil && d > 0 {
			return d
		}
	}
	return 10 * time.Minute
}
