package websocket

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juggerconnect/middleware"
	"juggerconnect/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// tokenFromRequest pulls the bearer credential from the handshake: either
// the token query parameter or an Authorization header.
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}

// Handler authenticates the handshake, binds the connection to its user and
// starts the pumps. A failed handshake never produces a presence entry.
func Handler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			log.Printf("❌ WebSocket connection rejected: no token provided")
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ParseToken(token)
		if err != nil {
			log.Printf("❌ WebSocket connection rejected: %v", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()

		var profile models.UserSummary
		if err := manager.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile); err != nil {
			log.Printf("❌ WebSocket connection rejected: user %s not found", claims.UserID)
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			manager: manager,
			conn:    conn,
			send:    make(chan []byte, 256),
			userID:  userID,
			profile: profile,
		}

		if replaced := manager.Register(client); replaced != nil {
			// Last-connect-wins: the superseded connection is closed and its
			// disconnect path will see it is no longer registered.
			replaced.conn.Close()
		}

		lastSeen := time.Now()
		if err := setOnlineStatus(ctx, manager.users, userID, true, lastSeen); err != nil {
			log.Printf("❌ Failed to mark user %s online: %v", claims.UserID, err)
		}

		manager.Broadcast("user_online", StatusPayload{
			UserID:   userID.Hex(),
			IsOnline: true,
			LastSeen: lastSeen,
		})

		client.sendEvent("connected", map[string]any{
			"userId": userID.Hex(),
			"time":   time.Now().Unix(),
		})

		go client.writePump()
		go client.readPump()
	}
}
