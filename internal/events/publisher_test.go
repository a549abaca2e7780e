package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/logger"
)

type fakeLog struct {
	published map[string][][]byte
	err       error
}

func newFakeLog() *fakeLog {
	return &fakeLog{published: make(map[string][][]byte)}
}

func (f *fakeLog) Publish(_ context.Context, channelKey string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published[channelKey] = append(f.published[channelKey], payload)
	return nil
}

func testLogger() logger.Logger {
	return logger.New("error", false)
}

func TestPublisherChannelRouting(t *testing.T) {
	log := newFakeLog()
	p := NewPublisher(log, testLogger())
	ctx := context.Background()

	p.ListUpdated(ctx, "list-1", domain.ActionURLAdded)
	p.ActivityCreated(ctx, &domain.ActivityRecord{
		ID:         "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		ListID:     "list-1",
		Action:     domain.ActionURLAdded,
		ActorEmail: "owner@example.com",
		CreatedAt:  time.Now(),
	})

	var listKey, activityKey string
	for k := range log.published {
		switch {
		case strings.Contains(k, "channel:list:"):
			listKey = k
		case strings.Contains(k, "channel:activity:"):
			activityKey = k
		}
	}
	if listKey == "" || activityKey == "" {
		t.Fatalf("expected one envelope per channel, got %v", log.published)
	}

	var env Envelope
	if err := json.Unmarshal(log.published[listKey][0], &env); err != nil {
		t.Fatalf("unmarshal list envelope: %v", err)
	}
	if env.Type != EventListUpdated || env.Action != domain.ActionURLAdded {
		t.Errorf("list envelope = %+v", env)
	}

	if err := json.Unmarshal(log.published[activityKey][0], &env); err != nil {
		t.Fatalf("unmarshal activity envelope: %v", err)
	}
	if env.Type != EventActivityCreated || env.Activity == nil || env.Activity.ActorEmail != "owner@example.com" {
		t.Errorf("activity envelope = %+v", env)
	}
}

// Publish failures must never reach the originating mutation.
func TestPublisherSwallowsFailures(t *testing.T) {
	log := newFakeLog()
	log.err = errors.New("redis down")
	p := NewPublisher(log, testLogger())

	// No panic, no error surfaced.
	p.ListUpdated(context.Background(), "list-1", domain.ActionURLDeleted)
	p.URLClicked(context.Background(), "list-1", "url-1", 4)
}

func TestEnvelopeKey(t *testing.T) {
	a := Envelope{Type: EventListUpdated, ListID: "l", Action: domain.ActionURLAdded, Timestamp: 100}
	b := Envelope{Type: EventListUpdated, ListID: "l", Action: domain.ActionURLAdded, Timestamp: 100}
	c := Envelope{Type: EventListUpdated, ListID: "l", Action: domain.ActionURLAdded, Timestamp: 101}

	if a.Key() != b.Key() {
		t.Error("identical envelopes must share a key")
	}
	if a.Key() == c.Key() {
		t.Error("distinct timestamps must produce distinct keys")
	}

	withActivity := Envelope{Type: EventActivityCreated, Activity: &ActivitySummary{ID: "rec-1"}}
	if withActivity.Key() != "act:rec-1" {
		t.Errorf("activity key = %s, want act:rec-1", withActivity.Key())
	}
}
