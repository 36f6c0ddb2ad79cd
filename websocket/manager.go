package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"juggerconnect/chat"
)

// Manager is the presence registry: one live connection per user,
// last-connect-wins. A new connection for a user replaces the previous one;
// a stale connection's disconnect must not evict its replacement, so removal
// is compare-and-unregister.
type Manager struct {
	mu      sync.RWMutex
	clients map[primitive.ObjectID]*Client

	store *chat.Store
	users *mongo.Collection

	// NotifyOffline, when set, is called for messages whose receiver has no
	// live connection (web push fallback). Best-effort.
	NotifyOffline func(receiver primitive.ObjectID, msg *chat.PopulatedMessage)
}

func NewManager(store *chat.Store, users *mongo.Collection) *Manager {
	return &Manager{
		clients: make(map[primitive.ObjectID]*Client),
		store:   store,
		users:   users,
	}
}

// Register installs the client as its user's live connection and returns the
// replaced one, if any. The caller closes the replaced connection.
func (m *Manager) Register(c *Client) *Client {
	m.mu.Lock()
	old := m.clients[c.userID]
	m.clients[c.userID] = c
	m.mu.Unlock()

	if old != nil && old != c {
		log.Printf("🔁 WebSocket reconnect for user %s, replacing previous connection", c.userID.Hex())
	} else {
		log.Printf("✅ WebSocket client registered: %s. Total clients: %d", c.userID.Hex(), m.ConnectedCount())
	}
	if old == c {
		return nil
	}
	return old
}

// Unregister removes the client only if it is still the registered entry for
// its user. Reports whether an entry was actually removed; a stale
// connection superseded by a newer one leaves the registry untouched.
func (m *Manager) Unregister(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clients[c.userID] != c {
		return false
	}
	delete(m.clients, c.userID)
	log.Printf("❌ WebSocket client unregistered: %s. Total clients: %d", c.userID.Hex(), len(m.clients))
	return true
}

// Lookup returns the user's live connection, or nil when offline.
func (m *Manager) Lookup(userID primitive.ObjectID) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[userID]
}

func (m *Manager) ConnectedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// envelope is the wire shape of every server-to-client event.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func marshalEvent(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(envelope{Type: event, Payload: payload})
	if err != nil {
		log.Printf("❌ Error marshaling WebSocket event %s: %v", event, err)
		return nil, false
	}
	return data, true
}

// SendToUser pushes an event to the user's live connection. Reports false
// when the user is offline or the connection's buffer is full.
func (m *Manager) SendToUser(userID primitive.ObjectID, event string, payload any) bool {
	c := m.Lookup(userID)
	if c == nil {
		return false
	}
	data, ok := marshalEvent(event, payload)
	if !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Broadcast sends an event to every connected client.
func (m *Manager) Broadcast(event string, payload any) {
	data, ok := marshalEvent(event, payload)
	if !ok {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		select {
		case c.send <- data:
		default:
			// slow consumer, drop the event rather than block the registry
		}
	}
}

// StatusPayload is the body of user_online, user_offline and
// user_status_update broadcasts.
type StatusPayload struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}
