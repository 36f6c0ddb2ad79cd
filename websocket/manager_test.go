package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testClient(m *Manager, userID primitive.ObjectID) *Client {
	return &Client{
		manager: m,
		send:    make(chan []byte, 8),
		userID:  userID,
	}
}

func TestRegisterLastConnectWins(t *testing.T) {
	m := NewManager(nil, nil)
	user := primitive.NewObjectID()

	first := testClient(m, user)
	second := testClient(m, user)

	assert.Nil(t, m.Register(first))
	assert.Equal(t, 1, m.ConnectedCount())

	// Reconnect overwrites, the replaced connection is handed back
	replaced := m.Register(second)
	assert.Same(t, first, replaced)
	assert.Equal(t, 1, m.ConnectedCount())
	assert.Same(t, second, m.Lookup(user))
}

func TestUnregisterStaleConnectionKeepsNewEntry(t *testing.T) {
	m := NewManager(nil, nil)
	user := primitive.NewObjectID()

	stale := testClient(m, user)
	fresh := testClient(m, user)

	m.Register(stale)
	m.Register(fresh)

	// The superseded connection closing must not evict its replacement
	assert.False(t, m.Unregister(stale))
	assert.Same(t, fresh, m.Lookup(user))
	assert.Equal(t, 1, m.ConnectedCount())

	assert.True(t, m.Unregister(fresh))
	assert.Nil(t, m.Lookup(user))
	assert.Equal(t, 0, m.ConnectedCount())
}

func TestUnregisterUnknownUserIsNoop(t *testing.T) {
	m := NewManager(nil, nil)
	assert.False(t, m.Unregister(testClient(m, primitive.NewObjectID())))
}

func TestSendToUser(t *testing.T) {
	m := NewManager(nil, nil)
	user := primitive.NewObjectID()
	client := testClient(m, user)
	m.Register(client)

	assert.True(t, m.SendToUser(user, "receive_message", map[string]any{"content": "hi"}))
	assert.False(t, m.SendToUser(primitive.NewObjectID(), "receive_message", nil), "offline user")

	var event struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-client.send, &event))
	assert.Equal(t, "receive_message", event.Type)
	assert.Equal(t, "hi", event.Payload["content"])
}

func TestBroadcastReachesAllClients(t *testing.T) {
	m := NewManager(nil, nil)

	a := testClient(m, primitive.NewObjectID())
	b := testClient(m, primitive.NewObjectID())
	m.Register(a)
	m.Register(b)

	m.Broadcast("user_online", StatusPayload{UserID: a.userID.Hex(), IsOnline: true})

	for _, c := range []*Client{a, b} {
		var event struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(<-c.send, &event))
		assert.Equal(t, "user_online", event.Type)
	}
}
