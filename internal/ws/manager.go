package ws

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/types"
)

// Conn is the subset of a websocket connection the manager needs. The
// production implementation is *websocket.Conn from gorilla/websocket.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// deadlineConn is implemented by connections that support write deadlines.
type deadlineConn interface {
	SetWriteDeadline(t time.Time) error
}

const writeTimeout = 10 * time.Second

// Subscriber is one registered connection. A subscriber with a run filter
// receives only events for that run; without one it receives everything.
type Subscriber struct {
	conn   Conn
	filter *uuid.UUID
}

// Manager tracks subscribers and fans pipeline events out to them.
// Delivery is fire-and-forget: a failed write closes and removes the
// subscriber and never surfaces to the caller.
type Manager struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewManager creates an empty subscriber registry.
func NewManager() *Manager {
	return &Manager{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a connection. A non-nil runID restricts delivery to
// events for that run.
func (m *Manager) Subscribe(conn Conn, runID *uuid.UUID) *Subscriber {
	sub := &Subscriber{conn: conn, filter: runID}
	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its connection. Safe to call
// more than once.
func (m *Manager) Unsubscribe(sub *Subscriber) {
	m.mu.Lock()
	_, ok := m.subs[sub]
	delete(m.subs, sub)
	m.mu.Unlock()
	if ok {
		_ = sub.conn.Close()
	}
}

// Count returns the number of registered subscribers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Broadcast delivers an event to every matching subscriber. The lock is
// held for the whole fan-out so each subscriber sees events for a given
// run in the order they were broadcast, exactly once.
func (m *Manager) Broadcast(ev types.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var failed []*Subscriber
	for sub := range m.subs {
		if sub.filter != nil && *sub.filter != ev.RunID {
			continue
		}
		if dc, ok := sub.conn.(deadlineConn); ok {
			_ = dc.SetWriteDeadline(time.Now().Add(writeTimeout))
		}
		if err := sub.conn.WriteJSON(ev); err != nil {
			log.Printf("[ws] dropping subscriber after write failure: %v", err)
			failed = append(failed, sub)
		}
	}
	for _, sub := range failed {
		delete(m.subs, sub)
		_ = sub.conn.Close()
	}
}
