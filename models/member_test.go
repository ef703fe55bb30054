package models

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
)

func TestMemberIDRoundTrip(t *testing.T) {
	chatID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	id := MemberID(chatID, userID)
	gotChat, gotUser, err := ParseMemberID(id)
	if err != nil {
		t.Fatalf("ParseMemberID(%q) = %v", id, err)
	}
	if gotChat != chatID || gotUser != userID {
		t.Errorf("ParseMemberID(%q) = (%s, %s), want (%s, %s)",
			id, gotChat.Hex(), gotUser.Hex(), chatID.Hex(), userID.Hex())
	}
}

func TestParseMemberIDRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "no separator", id: primitive.NewObjectID().Hex()},
		{name: "bad chat hex", id: "zzz/" + primitive.NewObjectID().Hex()},
		{name: "bad user hex", id: primitive.NewObjectID().Hex() + "/zzz"},
		{name: "trailing separator", id: primitive.NewObjectID().Hex() + "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseMemberID(tt.id)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("ParseMemberID(%q) = %v, want validation error", tt.id, err)
			}
		})
	}
}

func TestNewMember(t *testing.T) {
	chatID := primitive.NewObjectID()
	user := &User{
		ID:       primitive.NewObjectID(),
		Username: "ada",
		Email:    "ada@example.com",
	}

	member := NewMember(chatID, user)
	if err := member.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if member.ID != MemberID(chatID, user.ID) {
		t.Errorf("ID = %q, want composite id", member.ID)
	}
	if member.Username != user.Username || member.Email != user.Email {
		t.Error("member snapshot should copy the user's username and email")
	}
	if member.AddedAt.IsZero() {
		t.Error("AddedAt should be stamped")
	}
}

func TestMemberValidateMismatchedID(t *testing.T) {
	chatID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	member := Member{
		ID:       MemberID(primitive.NewObjectID(), userID),
		ChatID:   chatID,
		UserID:   userID,
		Username: "ada",
	}
	if err := member.Validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Validate() = %v, want validation error", err)
	}
}
