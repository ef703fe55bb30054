package store

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
	"kamuy/models"
)

func TestNewIDsOnly(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()

	tests := []struct {
		name       string
		existing   []primitive.ObjectID
		candidates []primitive.ObjectID
		expected   []primitive.ObjectID
	}{
		{
			name:       "all new",
			existing:   []primitive.ObjectID{a},
			candidates: []primitive.ObjectID{b, c},
			expected:   []primitive.ObjectID{b, c},
		},
		{
			name:       "already members are skipped",
			existing:   []primitive.ObjectID{a, b},
			candidates: []primitive.ObjectID{a, b, c},
			expected:   []primitive.ObjectID{c},
		},
		{
			name:       "duplicates within the input collapse",
			existing:   []primitive.ObjectID{a},
			candidates: []primitive.ObjectID{b, b, b},
			expected:   []primitive.ObjectID{b},
		},
		{
			name:       "nothing new",
			existing:   []primitive.ObjectID{a, b},
			candidates: []primitive.ObjectID{b, a},
			expected:   nil,
		},
		{
			name:       "empty input",
			existing:   []primitive.ObjectID{a},
			candidates: nil,
			expected:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newIDsOnly(tt.existing, tt.candidates)
			if len(got) != len(tt.expected) {
				t.Fatalf("newIDsOnly() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("newIDsOnly() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}

func TestCanRemoveMember(t *testing.T) {
	owner := primitive.NewObjectID()
	member := primitive.NewObjectID()
	other := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	chat := &models.Chat{
		ID:        primitive.NewObjectID(),
		OwnerID:   owner,
		MemberIDs: []primitive.ObjectID{owner, member, other},
	}

	tests := []struct {
		name        string
		callerID    primitive.ObjectID
		memberID    primitive.ObjectID
		expectedErr error
	}{
		{
			name:        "owner removes a member",
			callerID:    owner,
			memberID:    member,
			expectedErr: nil,
		},
		{
			name:        "member removes themselves",
			callerID:    member,
			memberID:    member,
			expectedErr: nil,
		},
		{
			name:        "owner can never be removed",
			callerID:    owner,
			memberID:    owner,
			expectedErr: apperr.ErrValidation,
		},
		{
			name:        "member cannot remove another member",
			callerID:    member,
			memberID:    other,
			expectedErr: apperr.ErrForbidden,
		},
		{
			name:        "target is not a member",
			callerID:    owner,
			memberID:    stranger,
			expectedErr: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := canRemoveMember(chat, tt.callerID, tt.memberID)
			if tt.expectedErr == nil {
				if err != nil {
					t.Errorf("canRemoveMember() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.expectedErr) {
				t.Errorf("canRemoveMember() = %v, want %v", err, tt.expectedErr)
			}
		})
	}
}
