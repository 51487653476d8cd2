package realtime

import (
	"sort"
	"sync"

	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
)

// Transport is the writable side of one client connection. A gorilla
// *websocket.Conn satisfies it.
type Transport interface {
	WriteJSON(v interface{}) error
	Close() error
}

// connection pairs a transport with a write lock. Gorilla connections
// support a single concurrent writer, so every WriteJSON goes through
// the per-connection mutex.
type connection struct {
	mu        sync.Mutex
	transport Transport
}

func (c *connection) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.WriteJSON(v)
}

// Manager keeps the table of live connections and the set of clients
// currently typing. A send failure unregisters the connection, so the
// table never holds a known-dead entry.
type Manager struct {
	mu     sync.Mutex
	conns  map[string]*connection
	typing map[string]struct{}
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{
		conns:  make(map[string]*connection),
		typing: make(map[string]struct{}),
	}
}

// Register adds a connection under the client id, replacing and closing
// any previous connection for the same id.
func (m *Manager) Register(clientID string, t Transport) {
	m.mu.Lock()
	prev, had := m.conns[clientID]
	m.conns[clientID] = &connection{transport: t}
	m.mu.Unlock()

	if had {
		prev.transport.Close()
	} else {
		metrics.ActiveConnections.Inc()
	}
	telemetry.Info("client connected", map[string]any{"client_id": clientID})
}

// Unregister removes the connection and drops the client from the typing
// set. Safe to call for an unknown id.
func (m *Manager) Unregister(clientID string) {
	m.mu.Lock()
	c, ok := m.conns[clientID]
	if ok {
		delete(m.conns, clientID)
		delete(m.typing, clientID)
	}
	m.mu.Unlock()

	if ok {
		c.transport.Close()
		metrics.ActiveConnections.Dec()
		telemetry.Info("client disconnected", map[string]any{"client_id": clientID})
	}
}

// SendTo writes v to one client. A dead connection is unregistered and
// false is returned.
func (m *Manager) SendTo(clientID string, v interface{}) bool {
	m.mu.Lock()
	c, ok := m.conns[clientID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	if err := c.write(v); err != nil {
		telemetry.Warn("send failed, dropping connection", map[string]any{
			"client_id": clientID,
			"error":     err.Error(),
		})
		m.Unregister(clientID)
		return false
	}
	return true
}

// Broadcast writes v to every connection. Dead connections are dropped.
func (m *Manager) Broadcast(v interface{}) {
	m.broadcastExcept("", v)
}

// BroadcastExcept writes v to every connection other than exclude.
func (m *Manager) BroadcastExcept(exclude string, v interface{}) {
	m.broadcastExcept(exclude, v)
}

func (m *Manager) broadcastExcept(exclude string, v interface{}) {
	m.mu.Lock()
	targets := make(map[string]*connection, len(m.conns))
	for id, c := range m.conns {
		if id == exclude {
			continue
		}
		targets[id] = c
	}
	m.mu.Unlock()

	for id, c := range targets {
		if err := c.write(v); err != nil {
			telemetry.Warn("send failed, dropping connection", map[string]any{
				"client_id": id,
				"error":     err.Error(),
			})
			m.Unregister(id)
		}
	}
}

// BroadcastTyping updates the typing set for the originator and sends the
// full set to every other connection.
func (m *Manager) BroadcastTyping(originID string, typing bool) {
	m.mu.Lock()
	if typing {
		m.typing[originID] = struct{}{}
	} else {
		delete(m.typing, originID)
	}
	clients := make([]string, 0, len(m.typing))
	for id := range m.typing {
		clients = append(clients, id)
	}
	m.mu.Unlock()
	sort.Strings(clients)

	m.broadcastExcept(originID, Envelope{
		Type:          TypeTypingStatus,
		TypingClients: clients,
	})
}

// ActiveCount reports the number of live connections.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}
