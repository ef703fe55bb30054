package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kamuy/apperr"
	"kamuy/models"
)

// withTxn runs fn inside a MongoDB transaction. Write-conflict retries are
// the driver's; anything fn returns aborts the whole transaction.
func (s *Store) withTxn(ctx context.Context, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("%w: starting session: %v", apperr.ErrUpstream, err)
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, fn)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if _, err := s.users().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email or username already taken", apperr.ErrValidation)
		}
		return fmt.Errorf("%w: creating user: %v", apperr.ErrUpstream, err)
	}
	return nil
}

// CreateChat creates an "Untitled" chat owned by ownerID together with the
// owner's member snapshot, atomically. Fails without side effects when the
// owner's user document does not exist.
func (s *Store) CreateChat(ctx context.Context, ownerID primitive.ObjectID) (*models.Chat, error) {
	result, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		owner, err := s.findUser(sc, bson.M{"_id": ownerID})
		if err != nil {
			return nil, err
		}

		chat := &models.Chat{
			ID:        primitive.NewObjectID(),
			Name:      models.DefaultChatName,
			OwnerID:   ownerID,
			ImageURL:  "",
			CreatedAt: models.Now(),
			Revision:  1,
			MemberIDs: []primitive.ObjectID{ownerID},
		}
		if _, err := s.chats().InsertOne(sc, chat); err != nil {
			return nil, fmt.Errorf("%w: creating chat: %v", apperr.ErrUpstream, err)
		}

		member := models.NewMember(chat.ID, owner)
		if _, err := s.members().InsertOne(sc, member); err != nil {
			return nil, fmt.Errorf("%w: creating owner member: %v", apperr.ErrUpstream, err)
		}
		return chat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Chat), nil
}

// DeleteChat removes the chat, its member snapshots and its messages in one
// transaction. Only the owner may delete; everyone else aborts before any
// write.
func (s *Store) DeleteChat(ctx context.Context, chatID, callerID primitive.ObjectID) (*models.Chat, error) {
	result, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		chat, err := s.chatForUpdate(sc, chatID)
		if err != nil {
			return nil, err
		}
		if chat.OwnerID != callerID {
			return nil, fmt.Errorf("%w: only the owner may delete the chat", apperr.ErrForbidden)
		}

		if _, err := s.members().DeleteMany(sc, bson.M{"chatId": chatID}); err != nil {
			return nil, fmt.Errorf("%w: deleting members: %v", apperr.ErrUpstream, err)
		}
		if _, err := s.messages().DeleteMany(sc, bson.M{"chatId": chatID}); err != nil {
			return nil, fmt.Errorf("%w: deleting messages: %v", apperr.ErrUpstream, err)
		}
		if _, err := s.chats().DeleteOne(sc, bson.M{"_id": chatID}); err != nil {
			return nil, fmt.Errorf("%w: deleting chat: %v", apperr.ErrUpstream, err)
		}
		return chat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Chat), nil
}

// AddMembers adds each user to the chat: one member snapshot per invitee
// plus an $addToSet into memberIds, so a concurrent add of the same user
// cannot produce duplicates. Owner-only.
func (s *Store) AddMembers(ctx context.Context, chatID, callerID primitive.ObjectID, userIDs []primitive.ObjectID) ([]models.Member, error) {
	result, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		chat, err := s.chatForUpdate(sc, chatID)
		if err != nil {
			return nil, err
		}
		if chat.OwnerID != callerID {
			return nil, fmt.Errorf("%w: only the owner may add members", apperr.ErrForbidden)
		}

		toAdd := newIDsOnly(chat.MemberIDs, userIDs)
		if len(toAdd) == 0 {
			return []models.Member{}, nil
		}

		added := make([]models.Member, 0, len(toAdd))
		for _, userID := range toAdd {
			user, err := s.findUser(sc, bson.M{"_id": userID})
			if err != nil {
				return nil, err
			}
			member := models.NewMember(chatID, user)
			if _, err := s.members().InsertOne(sc, member); err != nil {
				return nil, fmt.Errorf("%w: adding member %s: %v", apperr.ErrUpstream, userID.Hex(), err)
			}
			added = append(added, member)
		}

		update := bson.M{
			"$addToSet": bson.M{"memberIds": bson.M{"$each": toAdd}},
			"$inc":      bson.M{"revision": 1},
		}
		if _, err := s.chats().UpdateByID(sc, chatID, update); err != nil {
			return nil, fmt.Errorf("%w: updating member list: %v", apperr.ErrUpstream, err)
		}
		return added, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Member), nil
}

// RemoveMember evicts a member: the member snapshot is deleted and the id
// pulled from memberIds in one transaction. The owner can never be removed;
// a non-owner may only remove themselves.
func (s *Store) RemoveMember(ctx context.Context, chatID, callerID, memberID primitive.ObjectID) error {
	_, err := s.withTxn(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		chat, err := s.chatForUpdate(sc, chatID)
		if err != nil {
			return nil, err
		}
		if err := canRemoveMember(chat, callerID, memberID); err != nil {
			return nil, err
		}

		update := bson.M{
			"$pull": bson.M{"memberIds": memberID},
			"$inc":  bson.M{"revision": 1},
		}
		if _, err := s.chats().UpdateByID(sc, chatID, update); err != nil {
			return nil, fmt.Errorf("%w: updating member list: %v", apperr.ErrUpstream, err)
		}
		if _, err := s.members().DeleteOne(sc, bson.M{"_id": models.MemberID(chatID, memberID)}); err != nil {
			return nil, fmt.Errorf("%w: deleting member: %v", apperr.ErrUpstream, err)
		}
		return nil, nil
	})
	return err
}

// RenameChat sets the chat's name and bumps its revision. The returned chat
// carries the new revision so clients can ignore older live echoes of the
// name.
func (s *Store) RenameChat(ctx context.Context, chatID, callerID primitive.ObjectID, name string) (*models.Chat, error) {
	return s.updateOwnedChat(ctx, chatID, callerID, bson.M{"name": name})
}

// SetChatImage persists the avatar download URL onto the chat document.
func (s *Store) SetChatImage(ctx context.Context, chatID, callerID primitive.ObjectID, imageURL string) (*models.Chat, error) {
	return s.updateOwnedChat(ctx, chatID, callerID, bson.M{"imageUrl": imageURL})
}

func (s *Store) updateOwnedChat(ctx context.Context, chatID, callerID primitive.ObjectID, set bson.M) (*models.Chat, error) {
	chat, err := s.ChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.OwnerID != callerID {
		return nil, fmt.Errorf("%w: only the owner may change chat settings", apperr.ErrForbidden)
	}

	var updated models.Chat
	err = s.chats().FindOneAndUpdate(ctx,
		bson.M{"_id": chatID, "ownerId": callerID},
		bson.M{"$set": set, "$inc": bson.M{"revision": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: chat", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: updating chat: %v", apperr.ErrUpstream, err)
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// AppendMessage inserts a message tagged with the sender's user snapshot.
// The sender must be a member of the chat.
func (s *Store) AppendMessage(ctx context.Context, chatID, senderID primitive.ObjectID, text string) (*models.Message, error) {
	chat, err := s.ChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(senderID) {
		return nil, fmt.Errorf("%w: sender is not a member of the chat", apperr.ErrForbidden)
	}

	sender, err := s.UserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:     primitive.NewObjectID(),
		ChatID: chatID,
		Text:   text,
		Owner: models.MessageOwner{
			ID:       sender.ID,
			Username: sender.Username,
		},
		CreatedAt: models.Now(),
	}
	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: appending message: %v", apperr.ErrUpstream, err)
	}
	return msg, nil
}

// SavePushSubscription upserts the user's web-push subscription keyed by
// endpoint.
func (s *Store) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	filter := bson.M{"userId": sub.UserID, "sub.endpoint": sub.Sub.Endpoint}
	update := bson.M{"$set": bson.M{"userId": sub.UserID, "sub": sub.Sub}}
	_, err := s.pushSubs().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: saving push subscription: %v", apperr.ErrUpstream, err)
	}
	return nil
}

// DeletePushSubscription prunes a dead subscription by endpoint.
func (s *Store) DeletePushSubscription(ctx context.Context, userID primitive.ObjectID, endpoint string) error {
	_, err := s.pushSubs().DeleteOne(ctx, bson.M{"userId": userID, "sub.endpoint": endpoint})
	if err != nil {
		return fmt.Errorf("%w: deleting push subscription: %v", apperr.ErrUpstream, err)
	}
	return nil
}

// chatForUpdate reads a chat inside a transaction.
func (s *Store) chatForUpdate(sc mongo.SessionContext, chatID primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats().FindOne(sc, bson.M{"_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: chat", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetching chat: %v", apperr.ErrUpstream, err)
	}
	if err := chat.Validate(); err != nil {
		return nil, err
	}
	return &chat, nil
}

// newIDsOnly filters out ids already present in the membership list,
// preserving order and dropping duplicates within the input itself.
func newIDsOnly(existing, candidates []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	var result []primitive.ObjectID
	for _, id := range candidates {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// canRemoveMember encodes the eviction rules: the member must exist, the
// owner can never be removed, and a non-owner may only remove themselves.
func canRemoveMember(chat *models.Chat, callerID, memberID primitive.ObjectID) error {
	if !chat.HasMember(memberID) {
		return fmt.Errorf("%w: member", apperr.ErrNotFound)
	}
	if memberID == chat.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed from the chat", apperr.ErrValidation)
	}
	if callerID != chat.OwnerID && callerID != memberID {
		return fmt.Errorf("%w: only the owner may remove other members", apperr.ErrForbidden)
	}
	return nil
}
