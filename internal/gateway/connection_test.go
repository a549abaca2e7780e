package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/logger"
	redisstore "github.com/linkboard/linkboard/internal/store/redis"
)

type memLog struct {
	mu       sync.Mutex
	channels map[string][][]byte
}

func newMemLog() *memLog {
	return &memLog{channels: make(map[string][][]byte)}
}

func (m *memLog) append(channelKey string, env events.Envelope) {
	payload, _ := json.Marshal(env)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channelKey] = append([][]byte{payload}, m.channels[channelKey]...)
	if len(m.channels[channelKey]) > redisstore.DefaultLogDepth {
		m.channels[channelKey] = m.channels[channelKey][:redisstore.DefaultLogDepth]
	}
}

func (m *memLog) Read(_ context.Context, channelKey string, n int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	window := m.channels[channelKey]
	if int64(len(window)) > n {
		window = window[:n]
	}
	out := make([][]byte, len(window))
	copy(out, window)
	return out, nil
}

type collector struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (c *collector) send(env events.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	return nil
}

func (c *collector) byType(t events.EventType) []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Envelope
	for _, e := range c.envs {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() logger.Logger { return logger.New("error", false) }

func fastConfig() Config {
	return Config{PollInterval: 10 * time.Millisecond, Grace: time.Second}
}

func TestServeEmitsConnectedFirst(t *testing.T) {
	conn := New("list-1", newMemLog(), testLogger(), 0, fastConfig())
	sink := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.envs) == 0 || sink.envs[0].Type != events.EventConnected {
		t.Fatalf("first envelope = %+v, want connected", sink.envs)
	}
}

// With no list activity the client receives a steady heartbeat and
// never looks disconnected: ~30 poll intervals must yield a heartbeat
// on nearly every tick.
func TestServeHeartbeatsWhenIdle(t *testing.T) {
	conn := New("list-1", newMemLog(), testLogger(), 0, fastConfig())
	sink := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if got := len(sink.byType(events.EventHeartbeat)); got < 27 {
		t.Errorf("got %d heartbeats over 30 ticks, want >= 27", got)
	}
}

func TestServeForwardsNewEventsOnce(t *testing.T) {
	log := newMemLog()
	conn := New("list-1", log, testLogger(), 0, fastConfig())
	sink := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	env := events.Envelope{
		Type:      events.EventListUpdated,
		ListID:    "list-1",
		Action:    domain.ActionURLAdded,
		Timestamp: events.NowMillis(),
	}
	log.append(redisstore.ListChannelKey("list-1"), env)

	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	// The envelope stays in the log window across every poll; it must be
	// forwarded exactly once per connection.
	if got := len(sink.byType(events.EventListUpdated)); got != 1 {
		t.Errorf("event forwarded %d times, want 1", got)
	}
}

func TestServeReadsBothChannels(t *testing.T) {
	log := newMemLog()
	conn := New("list-1", log, testLogger(), 0, fastConfig())
	sink := &collector{}

	now := events.NowMillis()
	log.append(redisstore.ListChannelKey("list-1"), events.Envelope{
		Type: events.EventListUpdated, ListID: "list-1",
		Action: domain.ActionURLsReordered, Timestamp: now,
	})
	log.append(redisstore.ActivityChannelKey("list-1"), events.Envelope{
		Type: events.EventActivityCreated, ListID: "list-1",
		Action:    domain.ActionURLsReordered,
		Timestamp: now + 1,
		Activity:  &events.ActivitySummary{ID: "rec-1", Action: domain.ActionURLsReordered},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if len(sink.byType(events.EventListUpdated)) != 1 || len(sink.byType(events.EventActivityCreated)) != 1 {
		t.Errorf("envelopes = %+v", sink.envs)
	}
}

// Events older than the grace window belong to a previous session and
// are not replayed to a fresh connection.
func TestServeSkipsStaleEvents(t *testing.T) {
	log := newMemLog()
	log.append(redisstore.ListChannelKey("list-1"), events.Envelope{
		Type: events.EventListUpdated, ListID: "list-1",
		Action:    domain.ActionURLAdded,
		Timestamp: time.Now().Add(-time.Minute).UnixMilli(),
	})

	conn := New("list-1", log, testLogger(), 0, Config{
		PollInterval: 10 * time.Millisecond,
		Grace:        100 * time.Millisecond,
	})
	sink := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if got := len(sink.byType(events.EventListUpdated)); got != 0 {
		t.Errorf("stale event forwarded %d times, want 0", got)
	}
}

// A reconnecting client passing its last event id gets the events it
// missed even when they predate the grace window.
func TestServeAdmitsEventsAfterLastEventID(t *testing.T) {
	log := newMemLog()
	missedAt := time.Now().Add(-30 * time.Second).UnixMilli()
	log.append(redisstore.ListChannelKey("list-1"), events.Envelope{
		Type: events.EventListUpdated, ListID: "list-1",
		Action:    domain.ActionURLDeleted,
		Timestamp: missedAt,
	})

	conn := New("list-1", log, testLogger(), missedAt-1, Config{
		PollInterval: 10 * time.Millisecond,
		Grace:        time.Second,
	})
	sink := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if got := len(sink.byType(events.EventListUpdated)); got != 1 {
		t.Errorf("missed event forwarded %d times, want 1", got)
	}
}

func TestEnvelopeOrderWithinPoll(t *testing.T) {
	log := newMemLog()
	now := events.NowMillis()
	// The log keeps newest first; forwarding must be oldest first.
	for i := 0; i < 3; i++ {
		log.append(redisstore.ListChannelKey("list-1"), events.Envelope{
			Type: events.EventListUpdated, ListID: "list-1",
			Action:    domain.ActionURLAdded,
			URLID:     strings.Repeat("x", i+1),
			Timestamp: now + int64(i),
		})
	}

	conn := New("list-1", log, testLogger(), 0, fastConfig())
	sink := &collector{}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := conn.Serve(ctx, sink.send); err != nil {
		t.Fatalf("serve: %v", err)
	}

	updates := sink.byType(events.EventListUpdated)
	if len(updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(updates))
	}
	for i := 1; i < len(updates); i++ {
		if updates[i-1].Timestamp > updates[i].Timestamp {
			t.Error("events not forwarded in log order")
		}
	}
}
