package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
)

// Member is a denormalized snapshot of a user at the moment they were added
// to a chat. The document id is the composite "chatIdHex/userIdHex" path, so
// a change-stream delete event still identifies both sides.
type Member struct {
	ID       string             `bson:"_id" json:"-"`
	ChatID   primitive.ObjectID `bson:"chatId" json:"chatId"`
	UserID   primitive.ObjectID `bson:"userId" json:"id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
	AddedAt  Timestamp          `bson:"addedAt" json:"addedAt"`
}

func MemberID(chatID, userID primitive.ObjectID) string {
	return chatID.Hex() + "/" + userID.Hex()
}

// ParseMemberID splits a composite member document id back into its chat
// and user ids.
func ParseMemberID(id string) (chatID, userID primitive.ObjectID, err error) {
	chatHex, userHex, ok := strings.Cut(id, "/")
	if !ok {
		return chatID, userID, fmt.Errorf("%w: malformed member id %q", apperr.ErrValidation, id)
	}
	chatID, err = primitive.ObjectIDFromHex(chatHex)
	if err != nil {
		return chatID, userID, fmt.Errorf("%w: malformed member id %q", apperr.ErrValidation, id)
	}
	userID, err = primitive.ObjectIDFromHex(userHex)
	if err != nil {
		return chatID, userID, fmt.Errorf("%w: malformed member id %q", apperr.ErrValidation, id)
	}
	return chatID, userID, nil
}

func NewMember(chatID primitive.ObjectID, user *User) Member {
	return Member{
		ID:       MemberID(chatID, user.ID),
		ChatID:   chatID,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		AddedAt:  Now(),
	}
}

func (m *Member) Validate() error {
	if m.ChatID.IsZero() || m.UserID.IsZero() {
		return fmt.Errorf("%w: member %q is missing ids", apperr.ErrValidation, m.ID)
	}
	if m.ID != MemberID(m.ChatID, m.UserID) {
		return fmt.Errorf("%w: member id %q does not match its chat and user", apperr.ErrValidation, m.ID)
	}
	if m.Username == "" {
		return fmt.Errorf("%w: member %q has no username", apperr.ErrValidation, m.ID)
	}
	return nil
}
