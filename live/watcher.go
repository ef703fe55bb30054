// Package live turns MongoDB change streams into WebSocket snapshot events.
// Every mutation committed to chats, chat_members or messages, by this
// process or any other, is re-read as a full document, validated, and
// fanned out to the clients watching the affected chat or user.
package live

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kamuy/database"
	"kamuy/logger"
	"kamuy/models"
	"kamuy/websocket"
)

const restartBackoff = 5 * time.Second

type Watcher struct {
	db      *mongo.Database
	manager *websocket.Manager
}

func NewWatcher(db *mongo.Database, manager *websocket.Manager) *Watcher {
	return &Watcher{db: db, manager: manager}
}

// Run watches the three live collections until ctx is canceled. Change
// streams (like multi-document transactions) require a replica set.
func (w *Watcher) Run(ctx context.Context) {
	go w.watch(ctx, database.ChatsCollection, w.handleChatEvent)
	go w.watch(ctx, database.MembersCollection, w.handleMemberEvent)
	go w.watch(ctx, database.MessagesCollection, w.handleMessageEvent)
}

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
	DocumentKey   bson.Raw `bson:"documentKey"`
}

func (w *Watcher) watch(ctx context.Context, collection string, handle func(changeEvent)) {
	log := logger.L()

	for {
		stream, err := w.db.Collection(collection).Watch(ctx, mongo.Pipeline{},
			options.ChangeStream().SetFullDocument(options.UpdateLookup),
		)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorw("opening change stream", "collection", collection, "err", err)
			select {
			case <-time.After(restartBackoff):
				continue
			case <-ctx.Done():
				return
			}
		}

		for stream.Next(ctx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				log.Errorw("decoding change event", "collection", collection, "err", err)
				continue
			}
			handle(event)
		}

		err = stream.Err()
		stream.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Errorw("change stream broken, restarting", "collection", collection, "err", err)
		}
		select {
		case <-time.After(restartBackoff):
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleChatEvent(event changeEvent) {
	log := logger.L()

	switch event.OperationType {
	case "insert", "update", "replace":
		var chat models.Chat
		if err := bson.Unmarshal(event.FullDocument, &chat); err != nil {
			log.Errorw("decoding chat document", "err", err)
			return
		}
		if err := chat.Validate(); err != nil {
			log.Errorw("rejecting malformed chat document", "err", err)
			return
		}

		eventType := websocket.EventChatUpdated
		if event.OperationType == "insert" {
			eventType = websocket.EventChatCreated
		}
		// Routed by user so the chat list stays fresh even when the chat
		// is not open. The payload carries the revision clients use to
		// drop echoes older than their own latest write.
		w.manager.PublishToUsers(hexIDs(chat.MemberIDs), websocket.Event{
			Type:    eventType,
			Payload: chat,
		})

	case "delete":
		chatID, ok := objectIDKey(event.DocumentKey)
		if !ok {
			return
		}
		w.manager.PublishToChat(chatID.Hex(), websocket.Event{
			Type:    websocket.EventChatDeleted,
			Payload: deletedChat{ID: chatID.Hex()},
		})
	}
}

func (w *Watcher) handleMemberEvent(event changeEvent) {
	log := logger.L()

	switch event.OperationType {
	case "insert":
		var member models.Member
		if err := bson.Unmarshal(event.FullDocument, &member); err != nil {
			log.Errorw("decoding member document", "err", err)
			return
		}
		if err := member.Validate(); err != nil {
			log.Errorw("rejecting malformed member document", "err", err)
			return
		}
		w.manager.PublishToChat(member.ChatID.Hex(), websocket.Event{
			Type:    websocket.EventMemberAdded,
			Payload: member,
		})

	case "delete":
		// The composite member id still identifies the chat and user after
		// the document is gone.
		id, ok := stringKey(event.DocumentKey)
		if !ok {
			return
		}
		chatID, userID, err := models.ParseMemberID(id)
		if err != nil {
			log.Errorw("rejecting malformed member key", "err", err)
			return
		}
		w.manager.PublishToChat(chatID.Hex(), websocket.Event{
			Type:    websocket.EventMemberRemoved,
			Payload: removedMember{ChatID: chatID.Hex(), ID: userID.Hex()},
		})
	}
}

func (w *Watcher) handleMessageEvent(event changeEvent) {
	log := logger.L()

	// Messages are append-only; deletes only happen in a chat cascade,
	// where chat_deleted already tells clients to drop everything.
	if event.OperationType != "insert" {
		return
	}

	var msg models.Message
	if err := bson.Unmarshal(event.FullDocument, &msg); err != nil {
		log.Errorw("decoding message document", "err", err)
		return
	}
	if err := msg.Validate(); err != nil {
		log.Errorw("rejecting malformed message document", "err", err)
		return
	}
	w.manager.PublishToChat(msg.ChatID.Hex(), websocket.Event{
		Type:    websocket.EventMessageAdded,
		Payload: msg,
	})
}

type deletedChat struct {
	ID string `json:"id"`
}

type removedMember struct {
	ChatID string `json:"chatId"`
	ID     string `json:"id"`
}

func hexIDs(ids []primitive.ObjectID) []string {
	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = id.Hex()
	}
	return result
}

func objectIDKey(key bson.Raw) (primitive.ObjectID, bool) {
	value, err := key.LookupErr("_id")
	if err != nil {
		return primitive.NilObjectID, false
	}
	id, ok := value.ObjectIDOK()
	return id, ok
}

func stringKey(key bson.Raw) (string, bool) {
	value, err := key.LookupErr("_id")
	if err != nil {
		return "", false
	}
	return value.StringValueOK()
}
