package channel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/convopipe/convopipe/core/config"
	"github.com/convopipe/convopipe/internal/chat"
)

// RedisSource consumes inbound payloads from a Redis pub/sub channel.
// Same payload convention as MQTT: {role, content, timestamp} JSON,
// with plain text handled by the Mux's parse fallback.
type RedisSource struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	channel string
}

func NewRedisSource(ctx context.Context, cfg config.RedisConfig) (*RedisSource, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis source: %w", err)
	}

	return &RedisSource{
		client:  client,
		pubsub:  client.Subscribe(ctx, cfg.InputChannel),
		channel: cfg.InputChannel,
	}, nil
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) Receive(ctx context.Context) (string, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("redis receive on %s: %w", s.channel, err)
	}
	return msg.Payload, nil
}

func (s *RedisSource) Close() error {
	_ = s.pubsub.Close()
	return s.client.Close()
}

// RedisSink publishes assistant messages to a Redis pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis sink: %w", err)
	}

	return &RedisSink{client: client, channel: cfg.OutputChannel}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, msg chat.Message) error {
	if msg.Role != chat.RoleAssistant {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal redis payload: %w", err)
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
