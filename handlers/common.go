package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juggerconnect/chat"
	"juggerconnect/database"
	"juggerconnect/models"
	"juggerconnect/websocket"
)

// Common constants and variables shared across all handler files
const fallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

var wsManager *websocket.Manager
var messageStore *chat.Store
var vapidPrivateKey string

// PushSubscription stores one web-push subscription per user.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}

// SetWebSocketManager sets the shared WebSocket manager
func SetWebSocketManager(manager *websocket.Manager) {
	wsManager = manager
}

// SetMessageStore sets the shared message store
func SetMessageStore(store *chat.Store) {
	messageStore = store
}

// currentUserID pulls the authenticated user id set by the JWT middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// respondChatError maps the chat package's sentinel errors to status codes.
func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// loadUserSummaries fetches the profile snapshot for each id in one query.
func loadUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	profiles := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	cursor, err := database.Users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.UserSummary
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Avatar == "" {
			u.Avatar = fallbackAvatar
		}
		profiles[u.ID] = u
	}
	return profiles, nil
}

// participantIDs collects the distinct sender/receiver ids of a message set.
func participantIDs(msgs []models.Message) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(msgs)*2)
	var ids []primitive.ObjectID
	for _, m := range msgs {
		if _, ok := seen[m.Sender]; !ok {
			seen[m.Sender] = struct{}{}
			ids = append(ids, m.Sender)
		}
		if _, ok := seen[m.Receiver]; !ok {
			seen[m.Receiver] = struct{}{}
			ids = append(ids, m.Receiver)
		}
	}
	return ids
}
