package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
)

// MessageOwner is the sender snapshot stored on each message.
type MessageOwner struct {
	ID       primitive.ObjectID `bson:"id" json:"id"`
	Username string             `bson:"username" json:"username"`
}

// Message is append-only: never edited or deleted outside of a chat
// cascade delete.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    primitive.ObjectID `bson:"chatId" json:"chatId"`
	Text      string             `bson:"text" json:"text"`
	Owner     MessageOwner       `bson:"owner" json:"owner"`
	CreatedAt Timestamp          `bson:"createdAt" json:"createdAt"`
}

func (m *Message) Validate() error {
	if m.ID.IsZero() {
		return fmt.Errorf("%w: message is missing an id", apperr.ErrValidation)
	}
	if m.ChatID.IsZero() {
		return fmt.Errorf("%w: message %s has no chat", apperr.ErrValidation, m.ID.Hex())
	}
	if m.Owner.ID.IsZero() {
		return fmt.Errorf("%w: message %s has no owner", apperr.ErrValidation, m.ID.Hex())
	}
	return nil
}
