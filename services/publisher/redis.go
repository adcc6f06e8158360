package publisher

import (
	"context"
	"time"

	"sjsage522/examwatcher/logger"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends every alert to a capped Redis stream
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int64
	now             func() time.Time
}

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: int64(streamMaxLength),
		now:             time.Now,
	}
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Name implements Publisher
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish adds the message to the stream, trimming it to the configured length
func (p *RedisPublisher) Publish(ctx context.Context, message string) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.streamMaxLength,
		Approx: true,
		Values: map[string]interface{}{
			"message": message,
			"sent_at": p.now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return err
	}

	logger.ForPublisher().Debug().Str("stream", p.stream).Msg("Published alert to stream")
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
