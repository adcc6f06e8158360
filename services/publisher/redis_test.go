package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	publisher := NewRedisPublisher(mr.Addr(), 0, "test_stream", 100)
	defer publisher.Close()
	publisher.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, publisher.Ping(ctx))
	require.NoError(t, publisher.Publish(ctx, "🚨 Incomplete tests found:\nIELTS"))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	entries, err := client.XRange(ctx, "test_stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "🚨 Incomplete tests found:\nIELTS", entries[0].Values["message"])
	assert.Equal(t, "2025-06-01T08:00:00Z", entries[0].Values["sent_at"])
}

func TestRedisPublisherUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	publisher := NewRedisPublisher(mr.Addr(), 0, "test_stream", 100)
	defer publisher.Close()
	mr.Close()

	assert.Error(t, publisher.Publish(context.Background(), "hello"))
}
