package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juggerconnect/models"
)

func TestConversationIDOrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, ConversationID(a, b), ConversationID(b, a))
	assert.Contains(t, ConversationID(a, b), "-")
}

func TestConversationIDMatchesMessageDerivation(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	msg := models.Message{Sender: a, Receiver: b}
	reply := models.Message{Sender: b, Receiver: a}

	assert.Equal(t, ConversationID(a, b), msg.ConversationID())
	assert.Equal(t, msg.ConversationID(), reply.ConversationID())
}

func noLookup(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	return nil, fmt.Errorf("%w: message", ErrNotFound)
}

func TestResolveCounterpartyPairKey(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	convID := ConversationID(a, b)

	ctx := context.Background()

	other, err := ResolveCounterparty(ctx, convID, a, noLookup)
	require.NoError(t, err)
	assert.Equal(t, b, other)

	other, err = ResolveCounterparty(ctx, convID, b, noLookup)
	require.NoError(t, err)
	assert.Equal(t, a, other)
}

func TestResolveCounterpartyRejectsNonParticipant(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	_, err := ResolveCounterparty(context.Background(), ConversationID(a, b), stranger, noLookup)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveCounterpartyLegacyMessageID(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	msgID := primitive.NewObjectID()

	lookup := func(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
		if id == msgID {
			return &models.Message{ID: msgID, Sender: a, Receiver: b}, nil
		}
		return nil, fmt.Errorf("%w: message", ErrNotFound)
	}

	ctx := context.Background()

	other, err := ResolveCounterparty(ctx, msgID.Hex(), a, lookup)
	require.NoError(t, err)
	assert.Equal(t, b, other)

	other, err = ResolveCounterparty(ctx, msgID.Hex(), b, lookup)
	require.NoError(t, err)
	assert.Equal(t, a, other)

	_, err = ResolveCounterparty(ctx, primitive.NewObjectID().Hex(), a, lookup)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveCounterpartyBadIdentifier(t *testing.T) {
	self := primitive.NewObjectID()

	_, err := ResolveCounterparty(context.Background(), "not-a-conversation", self, noLookup)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ResolveCounterparty(context.Background(), "nothexatall", self, noLookup)
	assert.ErrorIs(t, err, ErrValidation)
}

// newMsg builds a test message; offset orders creation times, larger = older.
func newMsg(sender, receiver primitive.ObjectID, content string, read bool, offset int) models.Message {
	created := time.Now().Add(-time.Duration(offset) * time.Minute)
	return models.Message{
		ID:          primitive.NewObjectID(),
		Sender:      sender,
		Receiver:    receiver,
		Content:     content,
		MessageType: models.MessageTypeText,
		IsRead:      read,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestBuildConversationsGroupsByCounterparty(t *testing.T) {
	me := primitive.NewObjectID()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	// Newest-first, matching the store's order
	msgs := []models.Message{
		newMsg(alice, me, "latest from alice", false, 1),
		newMsg(me, bob, "to bob", true, 2),
		newMsg(alice, me, "older from alice", false, 3),
		newMsg(bob, me, "from bob", true, 4),
	}

	summaries := BuildConversations(me, msgs, nil)

	require.Len(t, summaries, 2)
	assert.Equal(t, alice, summaries[0].ID)
	assert.Equal(t, "latest from alice", summaries[0].LastMessage.Content)
	assert.Equal(t, 2, summaries[0].UnreadCount)

	assert.Equal(t, bob, summaries[1].ID)
	assert.Equal(t, "to bob", summaries[1].LastMessage.Content)
	assert.Equal(t, 0, summaries[1].UnreadCount)
}

func TestBuildConversationsUnreadOnlyCountsInbound(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()

	// My own unread messages to them must not count toward my unread total
	msgs := []models.Message{
		newMsg(me, other, "sent by me, unread by them", false, 1),
		newMsg(other, me, "unread by me", false, 2),
		newMsg(other, me, "already read", true, 3),
	}

	summaries := BuildConversations(me, msgs, nil)

	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].UnreadCount)
}

func TestBuildConversationsSingleMessageScenario(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	hi := newMsg(a, b, "hi", false, 1)

	forA := BuildConversations(a, []models.Message{hi}, nil)
	require.Len(t, forA, 1)
	assert.Equal(t, b, forA[0].ID)
	assert.Equal(t, "hi", forA[0].LastMessage.Content)
	assert.Equal(t, 0, forA[0].UnreadCount)

	forB := BuildConversations(b, []models.Message{hi}, nil)
	require.Len(t, forB, 1)
	assert.Equal(t, a, forB[0].ID)
	assert.Equal(t, 1, forB[0].UnreadCount)
}

func TestBuildConversationsEmpty(t *testing.T) {
	summaries := BuildConversations(primitive.NewObjectID(), nil, nil)
	assert.Empty(t, summaries)
}

func TestBuildConversationsAttachesPartnerProfiles(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()

	partners := map[primitive.ObjectID]models.UserSummary{
		other: {ID: other, Name: "Alice", Avatar: "http://example.com/a.png"},
	}

	summaries := BuildConversations(me, []models.Message{newMsg(other, me, "hey", false, 1)}, partners)

	require.Len(t, summaries, 1)
	assert.Equal(t, "Alice", summaries[0].Partner.Name)
}
