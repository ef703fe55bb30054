package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names. Members and messages live in flat collections keyed by
// chatId rather than sub-collections; the member document id encodes the
// "chats/{id}/members/{uid}" path.
const (
	UsersCollection    = "users"
	ChatsCollection    = "chats"
	MembersCollection  = "chat_members"
	MessagesCollection = "messages"
	PushSubsCollection = "push_subscriptions"
)

// Connect dials MongoDB and verifies the connection with a ping. The
// returned client is constructed once at startup and passed down
// explicitly; there is no package-level client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes Kamuy queries depend on: unique users
// by email and username, chat listing by membership and creation time, and
// message history ordering.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	_, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(ChatsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "memberIds", Value: 1}, {Key: "createdAt.seconds", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(MembersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(MessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt.seconds", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(PushSubsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	return err
}

func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
