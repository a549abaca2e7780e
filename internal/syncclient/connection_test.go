package syncclient

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/logger"
	"github.com/linkboard/linkboard/internal/updates"
)

type scriptSource struct {
	ch        chan events.Envelope
	closeOnce sync.Once
	closed    chan struct{}
}

func newScriptSource() *scriptSource {
	return &scriptSource{
		ch:     make(chan events.Envelope, 64),
		closed: make(chan struct{}),
	}
}

func (s *scriptSource) emit(env events.Envelope) { s.ch <- env }

func (s *scriptSource) Next(ctx context.Context) (events.Envelope, error) {
	select {
	case env := <-s.ch:
		return env, nil
	case <-s.closed:
		return events.Envelope{}, io.EOF
	case <-ctx.Done():
		return events.Envelope{}, ctx.Err()
	}
}

func (s *scriptSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	sources  chan *scriptSource
}

func newFakeDialer(failures int) *fakeDialer {
	return &fakeDialer{failures: failures, sources: make(chan *scriptSource, 16)}
}

func (d *fakeDialer) Dial(context.Context, string, int64) (EventSource, error) {
	d.mu.Lock()
	d.dials++
	fail := d.dials <= d.failures
	d.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	src := newScriptSource()
	d.sources <- src
	return src, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) waitSource(t *testing.T) *scriptSource {
	t.Helper()
	select {
	case src := <-d.sources:
		return src
	case <-time.After(2 * time.Second):
		t.Fatal("no stream opened")
		return nil
	}
}

type fakeFetcher struct {
	mu    sync.Mutex
	times []time.Time
}

func (f *fakeFetcher) Fetch(context.Context, string) (*updates.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.times = append(f.times, time.Now())
	return &updates.Update{}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.times)
}

type patchRec struct {
	urlID  string
	clicks int64
}

type recordingHooks struct {
	mu         sync.Mutex
	updates    int
	patches    []patchRec
	activities []events.ActivitySummary
}

func (r *recordingHooks) hooks() *Hooks {
	return &Hooks{
		Update: func(string, *updates.Update) {
			r.mu.Lock()
			r.updates++
			r.mu.Unlock()
		},
		ClickPatch: func(_, urlID string, clicks int64) {
			r.mu.Lock()
			r.patches = append(r.patches, patchRec{urlID, clicks})
			r.mu.Unlock()
		},
		Activity: func(_ string, summary events.ActivitySummary) {
			r.mu.Lock()
			r.activities = append(r.activities, summary)
			r.mu.Unlock()
		},
	}
}

func (r *recordingHooks) patchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches)
}

func fastClientConfig() Config {
	return Config{
		StructuralWindow: 50 * time.Millisecond,
		VisibilityWindow: 20 * time.Millisecond,
		Cooldown:         30 * time.Millisecond,
		LocalGrace:       120 * time.Millisecond,
		BackoffMin:       10 * time.Millisecond,
		BackoffMax:       40 * time.Millisecond,
	}
}

func newTestConnection(t *testing.T, dialer *fakeDialer, fetcher *fakeFetcher) (*Connection, *recordingHooks, *scriptSource) {
	t.Helper()
	rec := &recordingHooks{}
	conn := newConnection("my-list", dialer, fetcher, logger.New("error", false), fastClientConfig())
	t.Cleanup(conn.Close)
	conn.subscribe(rec.hooks())
	src := dialer.waitSource(t)
	return conn, rec, src
}

func structural(ts int64) events.Envelope {
	return events.Envelope{
		Type:      events.EventListUpdated,
		ListID:    "my-list",
		Action:    domain.ActionURLAdded,
		Timestamp: ts,
	}
}

func TestHeartbeatsAreIgnored(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, rec, src := newTestConnection(t, dialer, fetcher)

	for i := 0; i < 5; i++ {
		src.emit(events.Envelope{Type: events.EventHeartbeat, ListID: "my-list", Timestamp: events.NowMillis()})
	}
	time.Sleep(200 * time.Millisecond)

	if fetcher.count() != 0 || rec.patchCount() != 0 {
		t.Errorf("heartbeats caused fetches=%d patches=%d", fetcher.count(), rec.patchCount())
	}
}

func TestDuplicateEventsApplyOnce(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, rec, src := newTestConnection(t, dialer, fetcher)

	click := events.Envelope{
		Type:       events.EventListUpdated,
		ListID:     "my-list",
		Action:     domain.ActionURLClicked,
		Timestamp:  events.NowMillis(),
		URLID:      "url-1",
		ClickCount: 7,
	}
	src.emit(click)
	src.emit(click)
	time.Sleep(150 * time.Millisecond)

	if got := rec.patchCount(); got != 1 {
		t.Errorf("duplicate click patched %d times, want 1", got)
	}
}

func TestClickEventsPatchWithoutFetch(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, rec, src := newTestConnection(t, dialer, fetcher)

	src.emit(events.Envelope{
		Type:       events.EventListUpdated,
		ListID:     "my-list",
		Action:     domain.ActionURLClicked,
		Timestamp:  events.NowMillis(),
		URLID:      "url-1",
		ClickCount: 3,
	})
	time.Sleep(150 * time.Millisecond)

	if fetcher.count() != 0 {
		t.Errorf("click triggered %d fetches, want 0", fetcher.count())
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.patches) != 1 || rec.patches[0].urlID != "url-1" || rec.patches[0].clicks != 3 {
		t.Errorf("patches = %+v", rec.patches)
	}
}

// A burst of structural events inside the coalescing window collapses
// to exactly one unified fetch.
func TestBurstCoalescesToOneFetch(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, _, src := newTestConnection(t, dialer, fetcher)

	base := events.NowMillis()
	for i := 0; i < 10; i++ {
		src.emit(structural(base + int64(i)))
	}
	time.Sleep(300 * time.Millisecond)

	if got := fetcher.count(); got != 1 {
		t.Errorf("burst of 10 caused %d fetches, want 1", got)
	}
}

// Two reorders close together produce one fetch, not two: the second
// lands inside the window opened by the first.
func TestCloseReordersShareOneFetch(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, _, src := newTestConnection(t, dialer, fetcher)

	reorder := func(ts int64) events.Envelope {
		return events.Envelope{
			Type:      events.EventListUpdated,
			ListID:    "my-list",
			Action:    domain.ActionURLsReordered,
			Timestamp: ts,
		}
	}
	src.emit(reorder(events.NowMillis()))
	time.Sleep(20 * time.Millisecond)
	src.emit(reorder(events.NowMillis()))

	time.Sleep(400 * time.Millisecond)
	if got := fetcher.count(); got != 1 {
		t.Errorf("two close reorders caused %d fetches, want 1", got)
	}
}

// Events arriving while a fetch is in flight queue exactly one
// follow-up fetch after the cool-down.
func TestInFlightSuppressionQueuesOneFollowUp(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, _, src := newTestConnection(t, dialer, fetcher)

	src.emit(structural(events.NowMillis()))
	// Let the first fetch start, then pile on during flight/cool-down.
	time.Sleep(70 * time.Millisecond)
	for i := 0; i < 5; i++ {
		src.emit(structural(events.NowMillis() + int64(i+100)))
	}
	time.Sleep(400 * time.Millisecond)

	if got := fetcher.count(); got != 2 {
		t.Errorf("got %d fetches, want 2 (initial + one queued)", got)
	}
}

// A refresh right after the user's own mutation is deferred past the
// grace window, never dropped.
func TestLocalOperationDefersRefresh(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	conn, _, src := newTestConnection(t, dialer, fetcher)

	conn.NoteLocalOperation()
	src.emit(structural(events.NowMillis()))

	time.Sleep(60 * time.Millisecond)
	if got := fetcher.count(); got != 0 {
		t.Fatalf("fetch ran %d times inside the grace window, want 0", got)
	}

	time.Sleep(300 * time.Millisecond)
	if got := fetcher.count(); got != 1 {
		t.Errorf("deferred fetch ran %d times, want 1", got)
	}
}

func TestActivitySummariesReachSubscribers(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, rec, src := newTestConnection(t, dialer, fetcher)

	src.emit(events.Envelope{
		Type:      events.EventActivityCreated,
		ListID:    "my-list",
		Action:    domain.ActionCommentAdded,
		Timestamp: events.NowMillis(),
		Activity:  &events.ActivitySummary{ID: "rec-1", Action: domain.ActionCommentAdded, ActorEmail: "owner@example.com"},
	})
	time.Sleep(200 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.activities) != 1 || rec.activities[0].ID != "rec-1" {
		t.Errorf("activities = %+v", rec.activities)
	}
}

func TestReconnectAfterFailures(t *testing.T) {
	dialer := newFakeDialer(2)
	fetcher := &fakeFetcher{}
	conn := newConnection("my-list", dialer, fetcher, logger.New("error", false), fastClientConfig())
	defer conn.Close()

	src := dialer.waitSource(t)
	src.emit(events.Envelope{Type: events.EventConnected, ListID: "my-list", Timestamp: events.NowMillis()})

	deadline := time.Now().Add(time.Second)
	for conn.State() != StateOpen && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if conn.State() != StateOpen {
		t.Fatalf("state = %s, want open", conn.State())
	}
	if dialer.dialCount() != 3 {
		t.Errorf("dials = %d, want 3", dialer.dialCount())
	}
}

// Dropping the stream mid-session reconnects and resumes from the last
// seen event id, so replayed duplicates are filtered.
func TestStreamDropReconnectsAndResumes(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	_, _, src := newTestConnection(t, dialer, fetcher)

	env := structural(events.NowMillis())
	src.emit(env)
	time.Sleep(150 * time.Millisecond)
	src.Close()

	src2 := dialer.waitSource(t)
	// The server replays the same envelope after reconnect.
	src2.emit(env)
	time.Sleep(300 * time.Millisecond)

	if got := fetcher.count(); got != 1 {
		t.Errorf("replayed envelope after reconnect caused %d fetches, want 1", got)
	}
}

func TestCloseAbortsPendingWork(t *testing.T) {
	dialer := newFakeDialer(0)
	fetcher := &fakeFetcher{}
	rec := &recordingHooks{}
	conn := newConnection("my-list", dialer, fetcher, logger.New("error", false), fastClientConfig())
	conn.subscribe(rec.hooks())
	src := dialer.waitSource(t)

	src.emit(structural(events.NowMillis()))
	conn.Close()
	time.Sleep(200 * time.Millisecond)

	if conn.State() != StateClosed {
		t.Errorf("state = %s, want closed", conn.State())
	}
}
