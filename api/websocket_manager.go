package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// connWithMutex wraps a WebSocket connection with its own mutex for thread-safe writes.
type connWithMutex struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *connWithMutex) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

// WSConnectionManager tracks the connected editors and pushes deck events
// to them.
type WSConnectionManager struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]*connWithMutex
	logger      *zap.Logger
}

func NewWSConnectionManager(logger *zap.Logger) *WSConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSConnectionManager{
		connections: make(map[*websocket.Conn]*connWithMutex),
		logger:      logger,
	}
}

func (m *WSConnectionManager) Add(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn] = &connWithMutex{conn: conn}
}

// Remove forgets conn and closes it.
func (m *WSConnectionManager) Remove(conn *websocket.Conn) {
	m.mu.Lock()
	_, ok := m.connections[conn]
	delete(m.connections, conn)
	m.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// Count reports the number of connected clients.
func (m *WSConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Broadcast sends message to every client. Clients that fail are dropped.
func (m *WSConnectionManager) Broadcast(message any) {
	m.mu.RLock()
	conns := make([]*connWithMutex, 0, len(m.connections))
	for _, cwm := range m.connections {
		conns = append(conns, cwm)
	}
	m.mu.RUnlock()

	for _, cwm := range conns {
		if err := cwm.writeJSON(message); err != nil {
			m.logger.Debug("dropping client", zap.Error(err))
			m.Remove(cwm.conn)
		}
	}
}

// WriteJSON writes to a single connection using its mutex.
func (m *WSConnectionManager) WriteJSON(conn *websocket.Conn, message any) error {
	m.mu.RLock()
	cwm, exists := m.connections[conn]
	m.mu.RUnlock()

	if !exists {
		return conn.WriteJSON(message)
	}
	return cwm.writeJSON(message)
}

// CloseAll disconnects every client.
func (m *WSConnectionManager) CloseAll() {
	m.mu.Lock()
	conns := m.connections
	m.connections = make(map[*websocket.Conn]*connWithMutex)
	m.mu.Unlock()

	for conn := range conns {
		_ = conn.Close()
	}
}

// handleWS upgrades the request and keeps the client registered until it
// disconnects. Clients only listen; anything they send is discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s.ws.Add(conn)
	defer s.ws.Remove(conn)

	if err := s.ws.WriteJSON(conn, map[string]any{"type": "hello", "clients": s.ws.Count()}); err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Shutdown disconnects websocket clients so their handlers return.
func (s *Server) Shutdown() {
	s.ws.CloseAll()
}
