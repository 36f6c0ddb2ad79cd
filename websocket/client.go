package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"juggerconnect/chat"
	"juggerconnect/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxPayloadSize = 4096
	dbTimeout      = 10 * time.Second
)

// Client is one authenticated WebSocket connection bound to a user, with the
// profile snapshot embedded in outgoing event payloads.
type Client struct {
	manager *Manager
	conn    *websocket.Conn
	send    chan []byte
	userID  primitive.ObjectID
	profile models.UserSummary
}

func (c *Client) sendEvent(event string, payload any) {
	data, ok := marshalEvent(event, payload)
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxPayloadSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}

		var event struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("❌ WebSocket event unmarshal error from user %s: %v", c.userID.Hex(), err)
			continue
		}

		switch event.Type {
		case "send_message":
			c.handleSendMessage(event.Payload)
		case "typing_start", "typing_stop":
			c.handleTyping(event.Type, event.Payload)
		case "mark_read":
			c.handleMarkRead(event.Payload)
		case "update_status":
			c.handleUpdateStatus(event.Payload)
		case "ping":
			c.sendEvent("pong", map[string]any{"time": time.Now().Unix()})
		default:
			log.Printf("⚠️ Unknown WebSocket event %q from user %s", event.Type, c.userID.Hex())
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect tears down presence for this connection. Only the connection
// that still owns the registry entry marks the user offline; a connection
// superseded by a rapid reconnect leaves the newer entry and its online
// status intact.
func (c *Client) disconnect() {
	if !c.manager.Unregister(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	lastSeen := time.Now()
	if err := setOnlineStatus(ctx, c.manager.users, c.userID, false, lastSeen); err != nil {
		log.Printf("❌ Failed to mark user %s offline: %v", c.userID.Hex(), err)
	}

	c.manager.Broadcast("user_offline", StatusPayload{
		UserID:   c.userID.Hex(),
		IsOnline: false,
		LastSeen: lastSeen,
	})
}

func setOnlineStatus(ctx context.Context, users *mongo.Collection, userID primitive.ObjectID, online bool, lastSeen time.Time) error {
	_, err := users.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isOnline": online, "lastSeen": lastSeen}},
	)
	return err
}

func (c *Client) handleSendMessage(raw json.RawMessage) {
	var req struct {
		ReceiverID  string `json:"receiverId"`
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
		FileURL     string `json:"fileUrl"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendEvent("message_error", map[string]any{"message": "Invalid send_message payload"})
		return
	}

	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		c.sendEvent("message_error", map[string]any{"message": "Invalid receiver ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	// Receiver existence is checked here, not in the store.
	var receiver models.UserSummary
	err = c.manager.users.FindOne(ctx, bson.M{"_id": receiverID}).Decode(&receiver)
	if err == mongo.ErrNoDocuments {
		c.sendEvent("message_error", map[string]any{"message": "Receiver not found"})
		return
	}
	if err != nil {
		c.sendEvent("message_error", map[string]any{"message": "Failed to send message"})
		return
	}

	msg, err := c.manager.store.Create(ctx, chat.CreateInput{
		Sender:      c.userID,
		Receiver:    receiverID,
		Content:     req.Content,
		MessageType: req.MessageType,
		FileURL:     req.FileURL,
	})
	if err != nil {
		if errors.Is(err, chat.ErrValidation) {
			c.sendEvent("message_error", map[string]any{"message": err.Error()})
		} else {
			log.Printf("❌ Send message error: %v", err)
			c.sendEvent("message_error", map[string]any{"message": "Failed to send message"})
		}
		return
	}

	populated := &chat.PopulatedMessage{
		Message:         *msg,
		SenderProfile:   c.profile,
		ReceiverProfile: receiver,
	}

	// Deliver live when the receiver is connected, fall back to web push
	// otherwise. The persisted record stands either way.
	if !c.manager.SendToUser(receiverID, "receive_message", populated) {
		if c.manager.NotifyOffline != nil {
			go c.manager.NotifyOffline(receiverID, populated)
		}
	} else {
		c.manager.SendToUser(receiverID, "typing_stop", map[string]any{"userId": c.userID.Hex()})
	}

	c.sendEvent("message_sent", populated)
}

func (c *Client) handleTyping(event string, raw json.RawMessage) {
	var req struct {
		ReceiverID string `json:"receiverId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		return
	}

	// Best-effort: silently dropped when the receiver is unreachable.
	c.manager.SendToUser(receiverID, event, map[string]any{"userId": c.userID.Hex()})
}

func (c *Client) handleMarkRead(raw json.RawMessage) {
	var req struct {
		SenderID string `json:"senderId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	senderID, err := primitive.ObjectIDFromHex(req.SenderID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := c.manager.store.MarkRead(ctx, senderID, c.userID); err != nil {
		log.Printf("❌ Mark read error: %v", err)
		return
	}

	// Let the sender's UI update its delivery ticks.
	c.manager.SendToUser(senderID, "messages_read", map[string]any{"readerId": c.userID.Hex()})
}

func (c *Client) handleUpdateStatus(raw json.RawMessage) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	online := req.Status == "online"
	lastSeen := time.Now()
	if err := setOnlineStatus(ctx, c.manager.users, c.userID, online, lastSeen); err != nil {
		log.Printf("❌ Update status error: %v", err)
		return
	}

	c.manager.Broadcast("user_status_update", StatusPayload{
		UserID:   c.userID.Hex(),
		IsOnline: online,
		LastSeen: lastSeen,
	})
}
