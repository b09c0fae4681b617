package ws

import (
	"log"
	"sync"
	"time"

	"party-service/internal/domain"

	"github.com/gorilla/websocket"
)

// Connection wraps websocket.Conn with metadata
type Connection struct {
	Conn     *websocket.Conn
	UserID   string
	LastSeen time.Time
}

// Manager fans in-app notification records out to every open app session of a
// user. Delivery here is best effort: the durable record and the FCM push are
// written elsewhere regardless.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{} // userID -> set of connections
}

func NewManager() *Manager {
	return &Manager{
		connections: make(map[string]map[*Connection]struct{}),
	}
}

// Add registers a connection for a user
func (m *Manager) Add(userID string, conn *websocket.Conn) *Connection {
	c := &Connection{Conn: conn, UserID: userID, LastSeen: time.Now()}

	m.mu.Lock()
	if _, ok := m.connections[userID]; !ok {
		m.connections[userID] = make(map[*Connection]struct{})
	}
	m.connections[userID][c] = struct{}{}
	m.mu.Unlock()

	log.Printf("WS connected: %s (total=%d)", userID, len(m.connections[userID]))
	return c
}

// Remove disconnects and removes a connection
func (m *Manager) Remove(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conns, ok := m.connections[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m.connections, c.UserID)
		}
	}
	_ = c.Conn.Close()
	log.Printf("WS disconnected: %s", c.UserID)
}

// Send delivers a notification record to all of a user's connections.
func (m *Manager) Send(userID string, n *domain.UserNotification) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if conns, ok := m.connections[userID]; ok {
		for c := range conns {
			if err := c.Conn.WriteJSON(n); err != nil {
				log.Printf("⚠️ failed WS send to %s: %v", userID, err)
				go m.Remove(c)
			}
		}
	}
}

// Heartbeat pings all connections periodically to keep them alive
func (m *Manager) Heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	for range ticker.C {
		m.mu.RLock()
		for _, conns := range m.connections {
			for c := range conns {
				if time.Since(c.LastSeen) > 2*interval {
					go m.Remove(c)
					continue
				}
				_ = c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			}
		}
		m.mu.RUnlock()
	}
}
