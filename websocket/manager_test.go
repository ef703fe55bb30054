package websocket

import (
	"testing"
	"time"
)

func newTestClient(userID string) *Client {
	return &Client{
		userID: userID,
		send:   make(chan []byte, 1),
		chats:  make(map[string]bool),
	}
}

func TestClientSubscriptionBookkeeping(t *testing.T) {
	client := newTestClient("user-1")

	if client.subscribedTo("chat-1") {
		t.Error("fresh client should not be subscribed")
	}

	client.subscribe("chat-1")
	if !client.subscribedTo("chat-1") {
		t.Error("subscribe should take effect")
	}

	client.unsubscribe("chat-1")
	if client.subscribedTo("chat-1") {
		t.Error("unsubscribe should take effect")
	}

	// Unsubscribing twice is a no-op.
	client.unsubscribe("chat-1")
}

func TestClientWants(t *testing.T) {
	subscribed := newTestClient("user-1")
	subscribed.subscribe("chat-1")

	tests := []struct {
		name     string
		client   *Client
		pub      publication
		expected bool
	}{
		{
			name:     "subscribed to the chat",
			client:   subscribed,
			pub:      publication{chatID: "chat-1"},
			expected: true,
		},
		{
			name:     "not subscribed to the chat",
			client:   subscribed,
			pub:      publication{chatID: "chat-2"},
			expected: false,
		},
		{
			name:     "addressed by user id",
			client:   newTestClient("user-2"),
			pub:      publication{userIDs: []string{"user-2", "user-3"}},
			expected: true,
		},
		{
			name:     "not among the addressed users",
			client:   newTestClient("user-9"),
			pub:      publication{userIDs: []string{"user-2", "user-3"}},
			expected: false,
		},
		{
			name:     "user routing reaches unsubscribed sockets",
			client:   newTestClient("user-1"),
			pub:      publication{chatID: "chat-1", userIDs: []string{"user-1"}},
			expected: true,
		},
		{
			name:     "empty publication matches nobody",
			client:   subscribed,
			pub:      publication{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.wants(tt.pub); got != tt.expected {
				t.Errorf("wants(%+v) = %v, want %v", tt.pub, got, tt.expected)
			}
		})
	}
}

func TestManagerFanOut(t *testing.T) {
	manager := NewManager()
	go manager.Start()

	inChat := newTestClient("user-1")
	inChat.subscribe("chat-1")
	outside := newTestClient("user-2")

	manager.register <- inChat
	manager.register <- outside

	manager.PublishToChat("chat-1", Event{Type: EventMessageAdded, Payload: "hi"})

	select {
	case data := <-inChat.send:
		if len(data) == 0 {
			t.Error("subscribed client should receive the serialized event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscribed client never received the event")
	}

	select {
	case <-outside.send:
		t.Error("unsubscribed client should not receive chat events")
	default:
	}
}

// A user evicted from a chat is no longer in memberIds and has no reason to
// be subscribed to the chat room, so removal events are routed to them by
// user id. The delivery must not depend on any chat subscription.
func TestManagerFanOutToUsers(t *testing.T) {
	manager := NewManager()
	go manager.Start()

	evicted := newTestClient("user-1")
	remaining := newTestClient("user-2")

	manager.register <- evicted
	manager.register <- remaining

	manager.PublishToUsers([]string{"user-1"}, Event{
		Type:    EventMemberRemoved,
		Payload: map[string]string{"chatId": "chat-1", "id": "user-1"},
	})

	select {
	case data := <-evicted.send:
		if len(data) == 0 {
			t.Error("addressed user should receive the serialized event")
		}
	case <-time.After(time.Second):
		t.Fatal("addressed user never received the event")
	}

	select {
	case <-remaining.send:
		t.Error("other users should not receive user-routed events")
	default:
	}
}
