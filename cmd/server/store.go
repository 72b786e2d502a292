package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/moderation"
	sqliteRepo "github.com/maeuln/community/internal/repository/sqlite"
	"github.com/maeuln/community/internal/storage"
	"github.com/maeuln/community/internal/trigger"
	"github.com/maeuln/community/internal/worker"
)

// runtime holds what every long-running command shares.
type runtime struct {
	db     *sqliteRepo.DB
	broker *live.Broker
	relay  *live.RedisRelay // nil without REDIS_URL
	images *storage.Disk
}

// openRuntime opens the database and the image store. With REDIS_URL set,
// writes are announced to other processes through the relay, so a worker's
// notification reaches the streams held open by the API process.
func openRuntime() (*runtime, error) {
	rt := &runtime{broker: live.NewBroker()}

	var pub live.Publisher = rt.broker
	if cfg.RedisURL != "" {
		relay, err := live.NewRedisRelay(cfg.RedisURL, rt.broker, logger)
		if err != nil {
			return nil, err
		}
		rt.relay = relay
		pub = relay
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		rt.close()
		return nil, fmt.Errorf("creating database directory %s: %w", dbDir, err)
	}

	db, err := sqliteRepo.New(cfg.DBPath, pub)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	rt.db = db

	images, err := storage.NewDisk(cfg.MediaDir, "/media/")
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.images = images

	logger.Info("store opened",
		slog.String("database", cfg.DBPath),
		slog.String("media", cfg.MediaDir),
		slog.Bool("relay", rt.relay != nil),
	)
	return rt, nil
}

// triggers builds the server-side reactions on top of the store.
func (rt *runtime) triggers() (*trigger.Service, *moderation.Service, worker.Triggers) {
	notify := trigger.New(rt.db, logger)
	moderate := moderation.New(rt.db, rt.images, logger)
	return notify, moderate, worker.Triggers{
		Comments: notify,
		Reports:  moderate,
		Reminder: notify,
	}
}

func (rt *runtime) close() {
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			logger.Error("closing database", slog.String("error", err.Error()))
		}
	}
	if rt.relay != nil {
		if err := rt.relay.Close(); err != nil {
			logger.Warn("closing relay", slog.String("error", err.Error()))
		}
	}
}
