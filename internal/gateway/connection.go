package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/logger"
	redisstore "github.com/linkboard/linkboard/internal/store/redis"
)

// LogReader is the channel log read side.
type LogReader interface {
	Read(ctx context.Context, channelKey string, n int64) ([][]byte, error)
}

// SendFunc delivers one envelope to the subscriber. Returning an error
// ends the connection.
type SendFunc func(env events.Envelope) error

// Config tunes one stream connection.
type Config struct {
	// PollInterval is the fixed tick at which both channels are read.
	// Delivery latency is bounded by it.
	PollInterval time.Duration

	// Grace admits events written just before the connection
	// registered.
	Grace time.Duration

	// ReadDepth caps how much of each channel window a poll reads.
	ReadDepth int64

	// MaxSeen bounds the per-connection dedup set.
	MaxSeen int
}

const (
	DefaultPollInterval = 3 * time.Second
	DefaultGrace        = 5 * time.Second
	defaultMaxSeen      = 512
)

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	if c.ReadDepth <= 0 {
		c.ReadDepth = redisstore.DefaultLogDepth
	}
	if c.MaxSeen <= 0 {
		c.MaxSeen = defaultMaxSeen
	}
	return c
}

// Connection is one long-lived stream for one subscriber on one list.
// It polls the shared channel log instead of holding a subscriber
// registry: bounded latency and at-least-once delivery in exchange for
// zero fan-out bookkeeping.
type Connection struct {
	listID string
	log    LogReader
	logger logger.Logger
	cfg    Config

	started  time.Time
	baseline time.Time

	seen      map[string]struct{}
	seenOrder []string
}

// New creates a connection for a list. lastEventID, when non-zero, is
// the millisecond timestamp of the last envelope the client saw; events
// after it are admitted even when older than the grace window, so a
// quick reconnect misses nothing still inside the log window.
func New(listID string, log LogReader, logging logger.Logger, lastEventID int64, cfg Config) *Connection {
	cfg = cfg.withDefaults()
	now := time.Now()

	baseline := now.Add(-cfg.Grace)
	if lastEventID > 0 {
		fromClient := time.UnixMilli(lastEventID)
		if fromClient.Before(baseline) {
			baseline = fromClient
		}
	}

	return &Connection{
		listID:   listID,
		log:      log,
		logger:   logging,
		cfg:      cfg,
		started:  now,
		baseline: baseline,
		seen:     make(map[string]struct{}),
	}
}

// Serve runs the poll loop until ctx is canceled (client disconnect) or
// send fails. The ticker is always released; no orphaned timers.
func (c *Connection) Serve(ctx context.Context, send SendFunc) error {
	if err := send(events.Envelope{
		Type:      events.EventConnected,
		ListID:    c.listID,
		Timestamp: events.NowMillis(),
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("stream connection closed",
				logger.String("list_id", c.listID),
				logger.Duration("lifetime", time.Since(c.started)))
			return nil

		case <-ticker.C:
			fresh := c.poll(ctx)
			if len(fresh) == 0 {
				// Liveness signal; also keeps intermediary idle
				// timeouts from firing.
				if err := send(events.Envelope{
					Type:      events.EventHeartbeat,
					ListID:    c.listID,
					Timestamp: events.NowMillis(),
				}); err != nil {
					return err
				}
				continue
			}
			for _, env := range fresh {
				if err := send(env); err != nil {
					return err
				}
			}
		}
	}
}

// poll reads both channels and returns the not-yet-forwarded envelopes
// in timestamp order. Read failures are transient: logged, and the next
// tick retries.
func (c *Connection) poll(ctx context.Context) []events.Envelope {
	var fresh []events.Envelope
	for _, key := range []string{
		redisstore.ListChannelKey(c.listID),
		redisstore.ActivityChannelKey(c.listID),
	} {
		payloads, err := c.log.Read(ctx, key, c.cfg.ReadDepth)
		if err != nil {
			c.logger.Warn("channel read failed, retrying next tick",
				logger.String("channel", key),
				logger.Error(err))
			continue
		}
		for _, raw := range payloads {
			var env events.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				c.logger.Debug("dropping malformed envelope",
					logger.String("channel", key),
					logger.Error(err))
				continue
			}
			if c.admit(env) {
				fresh = append(fresh, env)
			}
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp < fresh[j].Timestamp
	})
	return fresh
}

// admit filters an envelope by dedup identity and by the connection's
// time baseline, recording admitted keys.
func (c *Connection) admit(env events.Envelope) bool {
	if time.UnixMilli(env.Timestamp).Before(c.baseline) {
		return false
	}
	key := env.Key()
	if _, ok := c.seen[key]; ok {
		return false
	}

	c.seen[key] = struct{}{}
	c.seenOrder = append(c.seenOrder, key)
	if len(c.seenOrder) > c.cfg.MaxSeen {
		oldest := c.seenOrder[0]
		c.seenOrder = c.seenOrder[1:]
		delete(c.seen, oldest)
	}
	return true
}
