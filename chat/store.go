package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"juggerconnect/models"
)

// Store persists messages in the messages collection. Receiver existence is
// the caller's problem; the store only validates the message itself.
type Store struct {
	messages *mongo.Collection
}

func NewStore(messages *mongo.Collection) *Store {
	return &Store{messages: messages}
}

// EnsureIndexes creates the indexes the listing and unread-count paths rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "isRead", Value: 1}}},
	})
	return err
}

// CreateInput carries the client-controlled fields of a new message.
type CreateInput struct {
	Sender      primitive.ObjectID
	Receiver    primitive.ObjectID
	Content     string
	MessageType string
	FileURL     string
}

func validateCreate(in *CreateInput) error {
	if in.Sender.IsZero() || in.Receiver.IsZero() {
		return fmt.Errorf("%w: sender and receiver are required", ErrValidation)
	}
	if in.Sender == in.Receiver {
		return fmt.Errorf("%w: cannot message yourself", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if utf8.RuneCountInString(in.Content) > models.MaxMessageLength {
		return fmt.Errorf("%w: message cannot be more than %d characters", ErrValidation, models.MaxMessageLength)
	}
	if in.MessageType == "" {
		in.MessageType = models.MessageTypeText
	}
	switch in.MessageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile, models.MessageTypeAudio:
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrValidation, in.MessageType)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Message, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := models.Message{
		ID:          primitive.NewObjectID(),
		Sender:      in.Sender,
		Receiver:    in.Receiver,
		Content:     in.Content,
		MessageType: in.MessageType,
		FileURL:     in.FileURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetByID returns the message regardless of its deleted flag (soft delete
// hides messages from listings, not from direct lookup).
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: message", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// sortNewestFirst orders by creation time, ties broken by _id descending so
// same-timestamp messages keep insertion order (ObjectIDs are time-prefixed).
var sortNewestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func bothDirections(a, b primitive.ObjectID) bson.A {
	return bson.A{
		bson.M{"sender": a, "receiver": b},
		bson.M{"sender": b, "receiver": a},
	}
}

// ListConversation returns non-deleted messages between the two users,
// newest first, paginated. hasMore is true iff the page is exactly limit
// long; callers reverse the page so history reads oldest-first.
func (s *Store) ListConversation(ctx context.Context, userA, userB primitive.ObjectID, page, limit int) ([]models.Message, bool, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	filter := bson.M{
		"$or":       bothDirections(userA, userB),
		"isDeleted": false,
	}
	opts := options.Find().
		SetSort(sortNewestFirst).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	msgs := make([]models.Message, 0, limit)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, false, err
	}
	return msgs, len(msgs) == limit, nil
}

// ListAllForUser returns every non-deleted message the user sent or
// received, newest first. Feeds the conversation aggregator.
func (s *Store) ListAllForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": userID},
			bson.M{"receiver": userID},
		},
		"isDeleted": false,
	}

	cursor, err := s.messages.Find(ctx, filter, options.Find().SetSort(sortNewestFirst))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead flips every unread message from sender to receiver to read.
// Idempotent: a second call matches nothing and reports zero.
func (s *Store) MarkRead(ctx context.Context, sender, receiver primitive.ObjectID) (int64, error) {
	now := time.Now()
	result, err := s.messages.UpdateMany(
		ctx,
		bson.M{
			"sender":   sender,
			"receiver": receiver,
			"isRead":   false,
		},
		bson.M{"$set": bson.M{
			"isRead":    true,
			"readAt":    now,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// UnreadCount counts non-deleted unread messages addressed to the user.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.messages.CountDocuments(ctx, bson.M{
		"receiver":  userID,
		"isRead":    false,
		"isDeleted": false,
	})
}

// SoftDelete hides a message from all listings without removing the record.
// Only the sender may delete.
func (s *Store) SoftDelete(ctx context.Context, messageID, requester primitive.ObjectID) (*models.Message, error) {
	msg, err := s.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Sender != requester {
		return nil, fmt.Errorf("%w: not your message", ErrUnauthorized)
	}

	now := time.Now()
	_, err = s.messages.UpdateOne(
		ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{
			"isDeleted": true,
			"deletedAt": now,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return nil, err
	}

	msg.IsDeleted = true
	msg.DeletedAt = &now
	msg.UpdatedAt = now
	return msg, nil
}

// Search does a case-insensitive substring match over the user's non-deleted
// messages, newest first, paginated. Also returns the total match count.
func (s *Store) Search(ctx context.Context, userID primitive.ObjectID, query string, page, limit int) ([]models.Message, int64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": userID},
			bson.M{"receiver": userID},
		},
		"content":   bson.M{"$regex": primitive.Regex{Pattern: regexQuoteMeta(query), Options: "i"}},
		"isDeleted": false,
	}

	opts := options.Find().
		SetSort(sortNewestFirst).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, 0, err
	}

	total, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// FindBetween reports any message between the pair, in either direction,
// deleted or not. Used by conversation creation to return an existing
// conversation's legacy id.
func (s *Store) FindBetween(ctx context.Context, userA, userB primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := s.messages.FindOne(
		ctx,
		bson.M{"$or": bothDirections(userA, userB)},
		options.FindOne().SetSort(sortNewestFirst),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: conversation", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// regexQuoteMeta escapes regex metacharacters so the search query is treated
// as a literal substring.
func regexQuoteMeta(s string) string {
	const special = `\.+*?()|[]{}^$`
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
