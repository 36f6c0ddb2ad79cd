package chat

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juggerconnect/models"
)

// PopulatedMessage is a stored message with the participant profile
// snapshots filled in, the shape returned to clients over REST and pushed
// over the WebSocket.
type PopulatedMessage struct {
	models.Message
	SenderProfile   models.UserSummary `json:"senderProfile"`
	ReceiverProfile models.UserSummary `json:"receiverProfile"`
}

// Populate attaches profile snapshots to each message. Missing profiles
// (deleted accounts) leave a zero summary rather than dropping the message.
func Populate(msgs []models.Message, profiles map[primitive.ObjectID]models.UserSummary) []PopulatedMessage {
	out := make([]PopulatedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = PopulatedMessage{
			Message:         m,
			SenderProfile:   profiles[m.Sender],
			ReceiverProfile: profiles[m.Receiver],
		}
	}
	return out
}
