package syncclient

import (
	"sync"

	"github.com/linkboard/linkboard/internal/logger"
)

// Manager caps live connections at one per list id, shared across all
// consumers. Acquire returns the shared connection plus a release
// handle; the last release tears the connection down.
type Manager struct {
	dialer  Dialer
	fetcher Fetcher
	logger  logger.Logger
	cfg     Config

	mu    sync.Mutex
	conns map[string]*managed
}

type managed struct {
	conn *Connection
	refs int
}

// NewManager creates the connection registry.
func NewManager(dialer Dialer, fetcher Fetcher, logging logger.Logger, cfg Config) *Manager {
	return &Manager{
		dialer:  dialer,
		fetcher: fetcher,
		logger:  logging,
		cfg:     cfg,
		conns:   make(map[string]*managed),
	}
}

// Acquire subscribes hooks to the list's shared connection, creating it
// on first use. The returned release function is idempotent.
func (m *Manager) Acquire(listID string, hooks *Hooks) (*Connection, func()) {
	m.mu.Lock()
	entry, ok := m.conns[listID]
	if !ok {
		entry = &managed{
			conn: newConnection(listID, m.dialer, m.fetcher, m.logger, m.cfg),
		}
		m.conns[listID] = entry
	}
	entry.refs++
	conn := entry.conn
	m.mu.Unlock()

	subID := conn.subscribe(hooks)

	var once sync.Once
	release := func() {
		once.Do(func() {
			conn.unsubscribe(subID)
			m.release(listID, conn)
		})
	}
	return conn, release
}

func (m *Manager) release(listID string, conn *Connection) {
	m.mu.Lock()
	entry, ok := m.conns[listID]
	if !ok || entry.conn != conn {
		m.mu.Unlock()
		return
	}
	entry.refs--
	last := entry.refs <= 0
	if last {
		delete(m.conns, listID)
	}
	m.mu.Unlock()

	if last {
		conn.Close()
	}
}

// NoteLocalOperation forwards the local-mutation grace signal to the
// list's live connection, if any.
func (m *Manager) NoteLocalOperation(listID string) {
	m.mu.Lock()
	entry, ok := m.conns[listID]
	m.mu.Unlock()
	if ok {
		entry.conn.NoteLocalOperation()
	}
}

// Active reports how many list connections are live.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Shutdown closes every live connection.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, entry := range m.conns {
		conns = append(conns, entry.conn)
	}
	m.conns = make(map[string]*managed)
	m.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
