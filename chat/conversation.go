package chat

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"juggerconnect/models"
)

// ConversationID derives the canonical id for the conversation between two
// users: both hex ids sorted and hyphen-joined. Order-independent, never
// persisted.
func ConversationID(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + "-" + y
}

// MessageLookup fetches a message by id, used to resolve legacy conversation
// identifiers (a bare message id from before the pair-key format).
type MessageLookup func(ctx context.Context, id primitive.ObjectID) (*models.Message, error)

// ResolveCounterparty maps a conversation identifier to the other participant
// relative to self. The identifier is either "<idA>-<idB>" (new format) or a
// legacy message id; the two are told apart by the token count after
// splitting on the hyphen.
func ResolveCounterparty(ctx context.Context, conversationID string, self primitive.ObjectID, lookup MessageLookup) (primitive.ObjectID, error) {
	parts := strings.Split(conversationID, "-")
	if len(parts) == 2 {
		first, err := primitive.ObjectIDFromHex(parts[0])
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("%w: bad conversation id", ErrValidation)
		}
		second, err := primitive.ObjectIDFromHex(parts[1])
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("%w: bad conversation id", ErrValidation)
		}
		switch self {
		case first:
			return second, nil
		case second:
			return first, nil
		}
		return primitive.NilObjectID, fmt.Errorf("%w: not a participant in this conversation", ErrValidation)
	}

	// Old format: the identifier is a message id.
	msgID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: bad conversation id", ErrValidation)
	}
	msg, err := lookup(ctx, msgID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if msg.Sender == self {
		return msg.Receiver, nil
	}
	return msg.Sender, nil
}

// ConversationSummary is the non-persisted aggregate returned by the
// conversation list: the counterparty, the latest message between the pair
// and how many of its messages the requesting user has not read yet.
type ConversationSummary struct {
	ID          primitive.ObjectID `json:"id"` // counterparty id
	Partner     models.UserSummary `json:"partner"`
	LastMessage *models.Message    `json:"lastMessage"`
	UnreadCount int                `json:"unreadCount"`
}

// BuildConversations groups a user's messages by counterparty. Input must be
// newest-first (the store's order); the first message seen per counterparty
// becomes lastMessage and summaries come out ordered by recency of last
// activity. Unread counts only cover messages directed at self.
func BuildConversations(self primitive.ObjectID, msgs []models.Message, partners map[primitive.ObjectID]models.UserSummary) []ConversationSummary {
	index := make(map[primitive.ObjectID]int)
	summaries := make([]ConversationSummary, 0)

	for i := range msgs {
		msg := &msgs[i]
		other := msg.Sender
		if other == self {
			other = msg.Receiver
		}

		pos, seen := index[other]
		if !seen {
			pos = len(summaries)
			index[other] = pos
			summaries = append(summaries, ConversationSummary{
				ID:          other,
				Partner:     partners[other],
				LastMessage: msg,
			})
		}
		if !msg.IsRead && msg.Receiver == self {
			summaries[pos].UnreadCount++
		}
	}

	return summaries
}
