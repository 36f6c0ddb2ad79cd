package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juggerconnect/models"
)

func validInput() CreateInput {
	return CreateInput{
		Sender:   primitive.NewObjectID(),
		Receiver: primitive.NewObjectID(),
		Content:  "hello",
	}
}

func TestValidateCreate(t *testing.T) {
	t.Run("DefaultsToText", func(t *testing.T) {
		in := validInput()
		assert.NoError(t, validateCreate(&in))
		assert.Equal(t, models.MessageTypeText, in.MessageType)
	})

	t.Run("AcceptsAllowedTypes", func(t *testing.T) {
		for _, mt := range []string{
			models.MessageTypeText,
			models.MessageTypeImage,
			models.MessageTypeFile,
			models.MessageTypeAudio,
		} {
			in := validInput()
			in.MessageType = mt
			assert.NoError(t, validateCreate(&in), mt)
		}
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		in := validInput()
		in.MessageType = "video"
		assert.ErrorIs(t, validateCreate(&in), ErrValidation)
	})

	t.Run("RejectsEmptyContent", func(t *testing.T) {
		in := validInput()
		in.Content = "   "
		assert.ErrorIs(t, validateCreate(&in), ErrValidation)
	})

	t.Run("RejectsOverlongContent", func(t *testing.T) {
		in := validInput()
		in.Content = strings.Repeat("x", models.MaxMessageLength+1)
		assert.ErrorIs(t, validateCreate(&in), ErrValidation)
	})

	t.Run("AcceptsMaxLengthContent", func(t *testing.T) {
		in := validInput()
		in.Content = strings.Repeat("ü", models.MaxMessageLength) // runes, not bytes
		assert.NoError(t, validateCreate(&in))
	})

	t.Run("RejectsSelfMessage", func(t *testing.T) {
		in := validInput()
		in.Receiver = in.Sender
		assert.ErrorIs(t, validateCreate(&in), ErrValidation)
	})

	t.Run("RejectsMissingParticipants", func(t *testing.T) {
		in := validInput()
		in.Receiver = primitive.NilObjectID
		assert.ErrorIs(t, validateCreate(&in), ErrValidation)
	})
}

func TestRegexQuoteMeta(t *testing.T) {
	assert.Equal(t, "hello", regexQuoteMeta("hello"))
	assert.Equal(t, `a\.b`, regexQuoteMeta("a.b"))
	assert.Equal(t, `\(1\+1\)\*2`, regexQuoteMeta("(1+1)*2"))
}
