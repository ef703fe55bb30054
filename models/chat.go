package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
)

// DefaultChatName is the name every freshly created chat starts with; the
// client autofocuses the rename input right after creation.
const DefaultChatName = "Untitled"

type Chat struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	OwnerID   primitive.ObjectID   `bson:"ownerId" json:"ownerId"`
	ImageURL  string               `bson:"imageUrl" json:"imageUrl"`
	CreatedAt Timestamp            `bson:"createdAt" json:"createdAt"`
	Revision  int64                `bson:"revision" json:"revision"`
	MemberIDs []primitive.ObjectID `bson:"memberIds" json:"memberIds"`
}

func (c *Chat) Validate() error {
	if c.ID.IsZero() {
		return fmt.Errorf("%w: chat is missing an id", apperr.ErrValidation)
	}
	if c.OwnerID.IsZero() {
		return fmt.Errorf("%w: chat %s has no owner", apperr.ErrValidation, c.ID.Hex())
	}
	if !c.HasMember(c.OwnerID) {
		return fmt.Errorf("%w: chat %s owner is not a member", apperr.ErrValidation, c.ID.Hex())
	}
	return nil
}

func (c *Chat) HasMember(userID primitive.ObjectID) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
