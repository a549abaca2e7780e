package syncclient

import (
	"context"
	"sync"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/logger"
	"github.com/linkboard/linkboard/internal/updates"
)

// EventSource is one open stream of envelopes.
type EventSource interface {
	Next(ctx context.Context) (events.Envelope, error)
	Close() error
}

// Dialer opens a stream for a list, resuming after lastEventID when
// non-zero.
type Dialer interface {
	Dial(ctx context.Context, listID string, lastEventID int64) (EventSource, error)
}

// Fetcher performs the unified authoritative read.
type Fetcher interface {
	Fetch(ctx context.Context, listID string) (*updates.Update, error)
}

// Hooks are the two integration contracts consumers may depend on: the
// "fresh state available" signal and the direct click patch. Activity
// additionally surfaces streamed summaries for optimistic rendering.
// Any hook may be nil.
type Hooks struct {
	Update     func(listID string, update *updates.Update)
	ClickPatch func(listID, urlID string, clicks int64)
	Activity   func(listID string, summary events.ActivitySummary)
}

// State is the connection lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateBackoffWait
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateBackoffWait:
		return "backoff-wait"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Config tunes one client connection.
type Config struct {
	// StructuralWindow coalesces ordinary structural events before one
	// unified fetch.
	StructuralWindow time.Duration

	// VisibilityWindow is the shorter window for events that change who
	// can see what.
	VisibilityWindow time.Duration

	// Cooldown extends in-flight suppression past fetch completion.
	Cooldown time.Duration

	// LocalGrace defers refreshes right after the user's own mutation.
	LocalGrace time.Duration

	BackoffMin time.Duration
	BackoffMax time.Duration

	// MaxSeen bounds the event dedup set.
	MaxSeen int
}

func (c Config) withDefaults() Config {
	if c.StructuralWindow <= 0 {
		c.StructuralWindow = 400 * time.Millisecond
	}
	if c.VisibilityWindow <= 0 {
		c.VisibilityWindow = 150 * time.Millisecond
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 250 * time.Millisecond
	}
	if c.LocalGrace <= 0 {
		c.LocalGrace = time.Second
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.MaxSeen <= 0 {
		c.MaxSeen = 512
	}
	return c
}

// Connection consumes one list's stream and turns envelopes into at
// most one in-flight unified fetch at a time. Clicks patch directly;
// everything else coalesces.
type Connection struct {
	listID  string
	dialer  Dialer
	fetcher Fetcher
	logger  logger.Logger
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu            sync.Mutex
	state         State
	subscribers   map[int]*Hooks
	nextSub       int
	seen          map[string]struct{}
	seenOrder     []string
	lastEventID   int64
	localOpUntil  time.Time
	fetchInFlight bool
	pendingFetch  bool
	coalesce      *time.Timer
	coalesceAt    time.Time
}

func newConnection(listID string, dialer Dialer, fetcher Fetcher, logging logger.Logger, cfg Config) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		listID:      listID,
		dialer:      dialer,
		fetcher:     fetcher,
		logger:      logging,
		cfg:         cfg.withDefaults(),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		state:       StateIdle,
		subscribers: make(map[int]*Hooks),
		seen:        make(map[string]struct{}),
	}
	go c.run()
	return c
}

// State reports the current lifecycle phase.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) subscribe(h *Hooks) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = h
	return id
}

func (c *Connection) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, id)
}

func (c *Connection) hooks() []*Hooks {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Hooks, 0, len(c.subscribers))
	for _, h := range c.subscribers {
		out = append(out, h)
	}
	return out
}

// NoteLocalOperation opens the grace window after the user's own
// mutation: the next refresh is deferred, never canceled, so the
// optimistically applied state does not flicker.
func (c *Connection) NoteLocalOperation() {
	c.mu.Lock()
	c.localOpUntil = time.Now().Add(c.cfg.LocalGrace)
	c.mu.Unlock()
}

// Close tears the connection down: aborts the stream, the pending
// coalesce timer and any in-flight fetch, then waits for the loop.
func (c *Connection) Close() {
	c.cancel()
	c.mu.Lock()
	if c.coalesce != nil {
		c.coalesce.Stop()
		c.coalesce = nil
	}
	c.state = StateClosed
	c.mu.Unlock()
	<-c.done
}

// run drives idle → connecting → open → backoff-wait → connecting
// until Close.
func (c *Connection) run() {
	defer close(c.done)

	backoff := c.cfg.BackoffMin
	for {
		if c.ctx.Err() != nil {
			return
		}
		c.setState(StateConnecting)

		src, err := c.dialer.Dial(c.ctx, c.listID, c.currentLastEventID())
		if err != nil {
			c.logger.Debug("stream dial failed",
				logger.String("list_id", c.listID),
				logger.Duration("retry_in", backoff),
				logger.Error(err))
			if !c.wait(backoff) {
				return
			}
			backoff = c.nextBackoff(backoff)
			continue
		}

		// Close unblocks a pending Next when the connection is torn
		// down mid-read.
		stop := context.AfterFunc(c.ctx, func() { _ = src.Close() })
		c.setState(StateOpen)

		for {
			env, err := src.Next(c.ctx)
			if err != nil {
				_ = src.Close()
				break
			}
			if env.Type == events.EventConnected {
				backoff = c.cfg.BackoffMin
			}
			c.handleEvent(env)
		}
		stop()

		if c.ctx.Err() != nil {
			return
		}
		c.setState(StateBackoffWait)
		if !c.wait(backoff) {
			return
		}
		backoff = c.nextBackoff(backoff)
	}
}

func (c *Connection) wait(d time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Connection) nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > c.cfg.BackoffMax {
		d = c.cfg.BackoffMax
	}
	return d
}

func (c *Connection) currentLastEventID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventID
}

// handleEvent routes one envelope: heartbeats are dropped, duplicates
// are dropped, clicks patch directly, everything else coalesces into a
// unified fetch.
func (c *Connection) handleEvent(env events.Envelope) {
	switch env.Type {
	case events.EventConnected, events.EventHeartbeat, events.EventError:
		return
	}

	if !c.markSeen(env) {
		return
	}

	if env.Type == events.EventListUpdated && env.Action == domain.ActionURLClicked && env.URLID != "" {
		for _, h := range c.hooks() {
			if h.ClickPatch != nil {
				h.ClickPatch(c.listID, env.URLID, env.ClickCount)
			}
		}
		return
	}

	if env.Type == events.EventActivityCreated && env.Activity != nil {
		for _, h := range c.hooks() {
			if h.Activity != nil {
				h.Activity(c.listID, *env.Activity)
			}
		}
	}

	window := c.cfg.StructuralWindow
	if visibilityAffecting(env.Action) {
		window = c.cfg.VisibilityWindow
	}
	c.scheduleFetch(window)
}

// visibilityAffecting marks actions that change who can see what;
// those refresh on the shorter window.
func visibilityAffecting(a domain.Action) bool {
	switch a {
	case domain.ActionVisibilityChanged,
		domain.ActionCollaboratorAdded,
		domain.ActionCollaboratorRemove,
		domain.ActionListDeleted:
		return true
	}
	return false
}

// markSeen records the envelope identity and advances the resume
// cursor. Returns false on a duplicate.
func (c *Connection) markSeen(env events.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

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
	if env.Timestamp > c.lastEventID {
		c.lastEventID = env.Timestamp
	}
	return true
}

// scheduleFetch arms (or accelerates) the coalesce timer. A burst
// within the window collapses to one fetch; an in-flight fetch queues
// exactly one follow-up.
func (c *Connection) scheduleFetch(window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	if c.fetchInFlight {
		c.pendingFetch = true
		return
	}

	deadline := time.Now().Add(window)
	if until := time.Until(c.localOpUntil); until > window {
		deadline = c.localOpUntil
	}

	if c.coalesce != nil {
		// Keep the earlier of the two deadlines.
		if deadline.Before(c.coalesceAt) {
			c.coalesce.Stop()
			c.coalesce = time.AfterFunc(time.Until(deadline), c.fire)
			c.coalesceAt = deadline
		}
		return
	}
	c.coalesce = time.AfterFunc(time.Until(deadline), c.fire)
	c.coalesceAt = deadline
}

// fire runs when the coalesce timer elapses. It re-defers if a local
// operation landed in the meantime, otherwise runs the single global
// fetch for this list.
func (c *Connection) fire() {
	c.mu.Lock()
	c.coalesce = nil
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if until := time.Until(c.localOpUntil); until > 0 {
		c.coalesce = time.AfterFunc(until, c.fire)
		c.coalesceAt = c.localOpUntil
		c.mu.Unlock()
		return
	}
	c.fetchInFlight = true
	c.mu.Unlock()

	update, err := c.fetcher.Fetch(c.ctx, c.listID)
	if err != nil {
		c.logger.Warn("unified fetch failed",
			logger.String("list_id", c.listID),
			logger.Error(err))
	} else {
		for _, h := range c.hooks() {
			if h.Update != nil {
				h.Update(c.listID, update)
			}
		}
	}

	// Suppression holds through the cool-down; triggers that arrived
	// meanwhile collapse into one follow-up fetch.
	select {
	case <-c.ctx.Done():
	case <-time.After(c.cfg.Cooldown):
	}

	c.mu.Lock()
	c.fetchInFlight = false
	rearm := c.pendingFetch && c.state != StateClosed && c.ctx.Err() == nil
	c.pendingFetch = false
	if rearm && c.coalesce == nil {
		deadline := time.Now().Add(c.cfg.StructuralWindow)
		c.coalesce = time.AfterFunc(c.cfg.StructuralWindow, c.fire)
		c.coalesceAt = deadline
	}
	c.mu.Unlock()
}
