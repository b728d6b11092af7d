package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/practice-api/pkg/circuitbreaker"
	"github.com/jwalitptl/practice-api/pkg/messaging"
)

const payloadField = "payload"

// streamClient is the part of *redis.Client the broker uses.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	Close() error
}

// RedisBroker publishes to redis streams and consumes them through a
// consumer group, so every message is handled by one worker replica.
type RedisBroker struct {
	client streamClient
	stream StreamConfig
	cb     *circuitbreaker.CircuitBreaker
	logger *zerolog.Logger
}

// StreamConfig controls consumer group delivery.
type StreamConfig struct {
	Group    string
	Consumer string
	// Block is how long one XREADGROUP waits for new entries.
	Block time.Duration
	// ClaimMinIdle is how long a delivered but unacknowledged entry waits
	// before another consumer takes it over.
	ClaimMinIdle time.Duration
	// MaxLen caps the stream length, approximately. Zero keeps everything.
	MaxLen    int64
	BatchSize int64
}

func (s StreamConfig) withDefaults() StreamConfig {
	if s.Group == "" {
		s.Group = "practice-worker"
	}
	if s.Consumer == "" {
		s.Consumer = s.Group
	}
	if s.Block <= 0 {
		s.Block = 5 * time.Second
	}
	if s.ClaimMinIdle <= 0 {
		s.ClaimMinIdle = time.Minute
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 10
	}
	return s
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

// NewClient opens a pooled client and checks it with a ping.
func NewClient(ctx context.Context, config Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.RetryBackoff > 0 {
		opts.MinRetryBackoff = config.RetryBackoff
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisBroker(config Config, stream StreamConfig, logger *zerolog.Logger) (messaging.Broker, error) {
	client, err := NewClient(context.Background(), config)
	if err != nil {
		return nil, err
	}
	return NewRedisBrokerWithClient(client, stream, logger), nil
}

// Pinger adapts a client to the health check interface.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// NewRedisBrokerWithClient reuses an existing client.
func NewRedisBrokerWithClient(client *redis.Client, stream StreamConfig, logger *zerolog.Logger) messaging.Broker {
	return newBroker(client, stream, logger)
}

func newBroker(client streamClient, stream StreamConfig, logger *zerolog.Logger) *RedisBroker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisBroker{
		client: client,
		stream: stream.withDefaults(),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-broker",
			MaxFailures: 5,
			Interval:    10 * time.Second,
			Timeout:     5 * time.Second,
		}),
		logger: logger,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: channel,
		Values: map[string]interface{}{payloadField: payload},
	}
	if b.stream.MaxLen > 0 {
		args.MaxLen = b.stream.MaxLen
		args.Approx = true
	}
	return b.cb.Execute(func() error {
		return b.client.XAdd(ctx, args).Err()
	})
}

func (b *RedisBroker) Consume(ctx context.Context, channel string, handler messaging.Handler) error {
	err := b.client.XGroupCreateMkStream(ctx, channel, b.stream.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group on %s: %w", channel, err)
	}

	b.logger.Debug().
		Str("stream", channel).
		Str("group", b.stream.Group).
		Str("consumer", b.stream.Consumer).
		Msg("consuming")

	for ctx.Err() == nil {
		claimed, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   channel,
			Group:    b.stream.Group,
			Consumer: b.stream.Consumer,
			MinIdle:  b.stream.ClaimMinIdle,
			Start:    "0-0",
			Count:    b.stream.BatchSize,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				break
			}
			b.logger.Warn().Err(err).Str("stream", channel).Msg("failed to claim stale entries")
		}
		b.handle(ctx, channel, claimed, handler)

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.stream.Group,
			Consumer: b.stream.Consumer,
			Streams:  []string{channel, ">"},
			Count:    b.stream.BatchSize,
			Block:    b.stream.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.logger.Error().Err(err).Str("stream", channel).Msg("failed to read stream")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		for _, s := range streams {
			b.handle(ctx, channel, s.Messages, handler)
		}
	}
	return nil
}

// handle acknowledges every message the handler accepted.
func (b *RedisBroker) handle(ctx context.Context, channel string, messages []redis.XMessage, handler messaging.Handler) {
	for _, msg := range messages {
		payload, _ := msg.Values[payloadField].(string)
		if err := handler(ctx, []byte(payload)); err != nil {
			b.logger.Warn().Err(err).
				Str("stream", channel).
				Str("id", msg.ID).
				Msg("message left pending")
			continue
		}
		if err := b.client.XAck(ctx, channel, b.stream.Group, msg.ID).Err(); err != nil {
			b.logger.Error().Err(err).Str("stream", channel).Str("id", msg.ID).Msg("failed to ack")
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
