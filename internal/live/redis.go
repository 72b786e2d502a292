package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// RelayChannel is the Redis pub/sub channel carrying change topics between
// processes.
const RelayChannel = "maeul:changes"

type relayMessage struct {
	Origin string   `json:"origin"`
	Topics []string `json:"topics"`
}

// RedisRelay publishes changes to the local broker and to Redis, and feeds
// changes published by other processes (a standalone worker, another API
// replica) into the local broker.
type RedisRelay struct {
	rdb    *redis.Client
	local  *Broker
	origin string
	logger *slog.Logger
}

var _ Publisher = (*RedisRelay)(nil)

// NewRedisRelay creates a relay around an existing broker.
func NewRedisRelay(redisURL string, local *Broker, logger *slog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("live: parsing redis URL: %w", err)
	}

	return &RedisRelay{
		rdb:    redis.NewClient(opts),
		local:  local,
		origin: xid.New().String(),
		logger: logger,
	}, nil
}

// Publish signals local watchers first, then announces the change to other
// processes. A Redis failure only delays remote watchers until their next
// change, so it is logged and not returned.
func (r *RedisRelay) Publish(topics ...string) {
	r.local.Publish(topics...)

	payload, err := json.Marshal(relayMessage{Origin: r.origin, Topics: topics})
	if err != nil {
		r.logger.Error("relay: encoding change", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, RelayChannel, payload).Err(); err != nil {
		r.logger.Warn("relay: publishing change",
			slog.Any("topics", topics),
			slog.String("error", err.Error()),
		)
	}
}

// Run forwards remote changes into the local broker until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	ps := r.rdb.Subscribe(ctx, RelayChannel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("live: subscribing to %s: %w", RelayChannel, err)
	}
	r.logger.Info("change relay started", slog.String("origin", r.origin))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topics, remote := r.decode(msg.Payload)
			if remote {
				r.local.Publish(topics...)
			}
		}
	}
}

// decode returns the topics of a relay message and whether it came from
// another process.
func (r *RedisRelay) decode(payload string) ([]string, bool) {
	var m relayMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		r.logger.Warn("relay: dropping malformed change", slog.String("error", err.Error()))
		return nil, false
	}
	return m.Topics, m.Origin != r.origin
}

// Close releases the Redis connection.
func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}
