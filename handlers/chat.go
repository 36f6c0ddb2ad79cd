package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"juggerconnect/chat"
	"juggerconnect/database"
	"juggerconnect/models"
)

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func findUserSummary(ctx context.Context, id primitive.ObjectID) (*models.UserSummary, error) {
	var user models.UserSummary
	err := database.Users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	if user.Avatar == "" {
		user.Avatar = fallbackAvatar
	}
	return &user, nil
}

// CreateConversation derives a conversation id for the caller and a
// participant. Conversations are never stored: when messages already exist
// between the pair the newest one's id is returned (legacy addressing),
// otherwise the pair key is derived.
func CreateConversation(c *gin.Context) {
	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Participant ID is required"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	participantID, err := primitive.ObjectIDFromHex(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant ID"})
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	participant, err := findUserSummary(ctx, participantID)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	me, err := findUserSummary(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if existing, err := messageStore.FindBetween(ctx, userID, participantID); err == nil {
		c.JSON(http.StatusOK, gin.H{
			"_id":          existing.ID.Hex(),
			"participants": []any{me, participant},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"_id":          chat.ConversationID(userID, participantID),
		"participants": []any{me, participant},
	})
}

// SendMessage persists a message addressed through a conversation
// identifier (pair key or legacy message id).
func SendMessage(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		Content        string `json:"content" binding:"required"`
		MessageType    string `json:"messageType,omitempty"`
		FileURL        string `json:"fileUrl,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID and content are required"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	receiverID, err := chat.ResolveCounterparty(ctx, req.ConversationID, userID, messageStore.GetByID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	receiver, err := findUserSummary(ctx, receiverID)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	msg, err := messageStore.Create(ctx, chat.CreateInput{
		Sender:      userID,
		Receiver:    receiverID,
		Content:     req.Content,
		MessageType: req.MessageType,
		FileURL:     req.FileURL,
	})
	if err != nil {
		respondChatError(c, err)
		return
	}

	me, err := findUserSummary(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	populated := &chat.PopulatedMessage{
		Message:         *msg,
		SenderProfile:   *me,
		ReceiverProfile: *receiver,
	}

	// Live delivery mirrors the realtime path; a miss is fine, the record is
	// already persisted and shows up on the receiver's next fetch.
	if wsManager != nil {
		if !wsManager.SendToUser(receiverID, "receive_message", populated) && wsManager.NotifyOffline != nil {
			go wsManager.NotifyOffline(receiverID, populated)
		}
	}

	c.JSON(http.StatusCreated, populated)
}

// GetConversation returns one page of message history, oldest first, and
// marks the counterparty's messages as read.
func GetConversation(c *gin.Context) {
	conversationID := c.Param("conversationId")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	otherID, err := chat.ResolveCounterparty(ctx, conversationID, userID, messageStore.GetByID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	if _, err := findUserSummary(ctx, otherID); err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	msgs, hasMore, err := messageStore.ListConversation(ctx, userID, otherID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	profiles, err := loadUserSummaries(ctx, participantIDs(msgs))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	// Fetching history implies reading it
	if _, err := messageStore.MarkRead(ctx, otherID, userID); err != nil {
		log.Printf("Mark read on fetch error: %v", err)
	}

	populated := chat.Populate(msgs, profiles)

	// Store order is newest-first; reverse so history reads top to bottom
	for i, j := 0, len(populated)-1; i < j; i, j = i+1, j-1 {
		populated[i], populated[j] = populated[j], populated[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    populated,
		"currentPage": page,
		"hasMore":     hasMore,
	})
}

// GetConversations lists the caller's conversation summaries, most recent
// activity first.
func GetConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	msgs, err := messageStore.ListAllForUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	profiles, err := loadUserSummaries(ctx, participantIDs(msgs))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": chat.BuildConversations(userID, msgs, profiles),
	})
}

// MarkMessagesAsRead flips everything the given sender sent to the caller.
func MarkMessagesAsRead(c *gin.Context) {
	senderID, err := primitive.ObjectIDFromHex(c.Param("senderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	count, err := messageStore.MarkRead(ctx, senderID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark as read"})
		return
	}

	if wsManager != nil {
		wsManager.SendToUser(senderID, "messages_read", map[string]any{"readerId": userID.Hex()})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Messages marked as read",
		"updatedCount": count,
	})
}

func GetUnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	count, err := messageStore.UnreadCount(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// DeleteMessage soft-deletes; only the sender may delete and the record
// stays in storage.
func DeleteMessage(c *gin.Context) {
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := messageStore.SoftDelete(ctx, messageID, userID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// SearchMessages does a paged case-insensitive substring search over the
// caller's messages.
func SearchMessages(c *gin.Context) {
	query := c.Query("query")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	msgs, total, err := messageStore.Search(ctx, userID, query, page, limit)
	if err != nil {
		respondChatError(c, err)
		return
	}

	profiles, err := loadUserSummaries(ctx, participantIDs(msgs))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":      chat.Populate(msgs, profiles),
		"currentPage":   page,
		"totalPages":    int(math.Ceil(float64(total) / float64(limit))),
		"totalMessages": total,
	})
}
