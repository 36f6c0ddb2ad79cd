package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Allowed message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeAudio = "audio"
)

// MaxMessageLength bounds message content, counted in runes.
const MaxMessageLength = 1000

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Sender      primitive.ObjectID `bson:"sender" json:"sender"`
	Receiver    primitive.ObjectID `bson:"receiver" json:"receiver"`
	Content     string             `bson:"content" json:"content"`
	MessageType string             `bson:"messageType" json:"messageType"` // text, image, file, audio
	FileURL     string             `bson:"fileUrl" json:"fileUrl"`
	IsRead      bool               `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time         `bson:"readAt" json:"readAt"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted"`
	DeletedAt   *time.Time         `bson:"deletedAt" json:"deletedAt"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ConversationID is derived, never stored: the two participant ids sorted
// and hyphen-joined, so both directions of a pair map to the same id.
func (m *Message) ConversationID() string {
	a, b := m.Sender.Hex(), m.Receiver.Hex()
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}
