package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"kamuy/apperr"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	CreatedAt    Timestamp          `bson:"createdAt" json:"createdAt"`
}

// Validate is the parse-don't-validate boundary for user documents coming
// out of the store.
func (u *User) Validate() error {
	if u.ID.IsZero() {
		return fmt.Errorf("%w: user is missing an id", apperr.ErrValidation)
	}
	if u.Username == "" {
		return fmt.Errorf("%w: user %s has no username", apperr.ErrValidation, u.ID.Hex())
	}
	if u.Email == "" {
		return fmt.Errorf("%w: user %s has no email", apperr.ErrValidation, u.ID.Hex())
	}
	return nil
}
