// Package store is Kamuy's data-access layer. Reads validate every document
// on the way out of MongoDB; writes that touch more than one document run
// inside a single transaction so readers never observe a partially-applied
// create, delete or membership change.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kamuy/apperr"
	"kamuy/database"
	"kamuy/models"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(client *mongo.Client, dbName string) *Store {
	return &Store{
		client: client,
		db:     client.Database(dbName),
	}
}

func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) users() *mongo.Collection    { return s.db.Collection(database.UsersCollection) }
func (s *Store) chats() *mongo.Collection    { return s.db.Collection(database.ChatsCollection) }
func (s *Store) members() *mongo.Collection  { return s.db.Collection(database.MembersCollection) }
func (s *Store) messages() *mongo.Collection { return s.db.Collection(database.MessagesCollection) }
func (s *Store) pushSubs() *mongo.Collection { return s.db.Collection(database.PushSubsCollection) }

func (s *Store) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// UserByEmailOrUsername resolves the free-form "add member" input: anything
// that parses as an email address is looked up by email, everything else by
// username.
func (s *Store) UserByEmailOrUsername(ctx context.Context, input string) (*models.User, error) {
	return s.findUser(ctx, bson.M{lookupField(input): input})
}

func lookupField(input string) string {
	if _, err := mail.ParseAddress(input); err == nil {
		return "email"
	}
	return "username"
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetching user: %v", apperr.ErrUpstream, err)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChatsForUser lists every chat the user is a member of, newest first.
// Unbounded, matching the chat list view.
func (s *Store) ChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	cursor, err := s.chats().Find(ctx,
		bson.M{"memberIds": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt.seconds", Value: -1}, {Key: "createdAt.nanoseconds", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing chats: %v", apperr.ErrUpstream, err)
	}
	defer cursor.Close(ctx)

	chats := []models.Chat{}
	for cursor.Next(ctx) {
		var chat models.Chat
		if err := cursor.Decode(&chat); err != nil {
			return nil, fmt.Errorf("%w: decoding chat: %v", apperr.ErrUpstream, err)
		}
		if err := chat.Validate(); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing chats: %v", apperr.ErrUpstream, err)
	}
	return chats, nil
}

func (s *Store) ChatByID(ctx context.Context, chatID primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats().FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
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

// MembersOfChat returns the chat's member snapshots in the order they were
// added.
func (s *Store) MembersOfChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Member, error) {
	cursor, err := s.members().Find(ctx,
		bson.M{"chatId": chatID},
		options.Find().SetSort(bson.D{{Key: "addedAt.seconds", Value: 1}, {Key: "addedAt.nanoseconds", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing members: %v", apperr.ErrUpstream, err)
	}
	defer cursor.Close(ctx)

	members := []models.Member{}
	for cursor.Next(ctx) {
		var member models.Member
		if err := cursor.Decode(&member); err != nil {
			return nil, fmt.Errorf("%w: decoding member: %v", apperr.ErrUpstream, err)
		}
		if err := member.Validate(); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing members: %v", apperr.ErrUpstream, err)
	}
	return members, nil
}

// MessagesForChat returns the full message history ordered by creation
// time ascending.
func (s *Store) MessagesForChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	cursor, err := s.messages().Find(ctx,
		bson.M{"chatId": chatID},
		options.Find().SetSort(bson.D{{Key: "createdAt.seconds", Value: 1}, {Key: "createdAt.nanoseconds", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing messages: %v", apperr.ErrUpstream, err)
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	for cursor.Next(ctx) {
		var msg models.Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, fmt.Errorf("%w: decoding message: %v", apperr.ErrUpstream, err)
		}
		if err := msg.Validate(); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing messages: %v", apperr.ErrUpstream, err)
	}
	return msgs, nil
}

func (s *Store) PushSubscriptionsForUsers(ctx context.Context, userIDs []primitive.ObjectID) ([]models.PushSubscription, error) {
	cursor, err := s.pushSubs().Find(ctx, bson.M{"userId": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, fmt.Errorf("%w: listing push subscriptions: %v", apperr.ErrUpstream, err)
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("%w: decoding push subscriptions: %v", apperr.ErrUpstream, err)
	}
	return subs, nil
}
