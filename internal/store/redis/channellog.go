package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLogDepth bounds each channel; the oldest entry is evicted
	// beyond this. The log is a short change-notification window, not a
	// durable queue: its loss is non-fatal.
	DefaultLogDepth = 10
)

// ChannelLog is the bounded, append-only per-channel log. Multi-writer,
// multi-reader, no locking; readers tolerate duplicates and gaps.
type ChannelLog struct {
	client *redis.Client
	depth  int64
}

// NewChannelLog creates a channel log with the default depth.
func NewChannelLog(client *redis.Client) *ChannelLog {
	return &ChannelLog{client: client, depth: DefaultLogDepth}
}

// NewChannelLogDepth creates a channel log with a custom depth.
func NewChannelLogDepth(client *redis.Client, depth int64) *ChannelLog {
	if depth <= 0 {
		depth = DefaultLogDepth
	}
	return &ChannelLog{client: client, depth: depth}
}

// Publish appends a payload to the channel and trims it to the bound.
// Push and trim run in one pipeline round trip.
func (l *ChannelLog) Publish(ctx context.Context, channelKey string, payload []byte) error {
	pipe := l.client.Pipeline()
	pipe.LPush(ctx, channelKey, payload)
	pipe.LTrim(ctx, channelKey, 0, l.depth-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channelKey, err)
	}
	return nil
}

// Read returns up to n of the most recent payloads, newest first,
// without consuming them. Every reader sees the same window
// (at-least-once delivery across readers and polls).
func (l *ChannelLog) Read(ctx context.Context, channelKey string, n int64) ([][]byte, error) {
	if n <= 0 || n > l.depth {
		n = l.depth
	}

	values, err := l.client.LRange(ctx, channelKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel %s: %w", channelKey, err)
	}

	payloads := make([][]byte, 0, len(values))
	for _, v := range values {
		payloads = append(payloads, []byte(v))
	}
	return payloads, nil
}
