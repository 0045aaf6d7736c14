package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
)

// RedisSink publishes run events on a pub/sub channel per run so dashboards
// and other services can follow runs live.
type RedisSink struct {
	client        *redis.Client
	channelPrefix string
	logger        logging.Logger
}

// NewRedisSink connects to redis and verifies the connection.
func NewRedisSink(ctx context.Context, cfg *config.Config) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSink{
		client:        client,
		channelPrefix: cfg.Redis.ChannelPrefix,
		logger:        logging.GetGlobalLogger(),
	}, nil
}

// Publish sends the event on "<prefix>:<run_id>". Failures are logged and
// swallowed; event delivery is best effort.
func (s *RedisSink) Publish(ctx context.Context, event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("Failed to encode run event", map[string]interface{}{
			"run_id": event.RunID,
			"error":  err.Error(),
		})
		return
	}

	channel := fmt.Sprintf("%s:%s", s.channelPrefix, event.RunID)
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		s.logger.Warn("Failed to publish run event", map[string]interface{}{
			"run_id":  event.RunID,
			"channel": channel,
			"error":   err.Error(),
		})
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
