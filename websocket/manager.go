// Package websocket is the live-subscription fan-out: clients hold one
// socket each, subscribe to the chats they have open, and receive
// self-contained snapshot events that they apply by wholesale replacement.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kamuy/logger"
)

// Event is one push delivery. Payload is always a complete snapshot of the
// affected document, never a diff, so redundant or out-of-order delivery is
// harmless to the receiver.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventChatCreated   = "chat_created"
	EventChatUpdated   = "chat_updated"
	EventChatDeleted   = "chat_deleted"
	EventMemberAdded   = "member_added"
	EventMemberRemoved = "member_removed"
	EventMessageAdded  = "message_added"
)

type publication struct {
	event Event
	// chatID routes to clients subscribed to that chat; userIDs routes to
	// all sockets of those users. Either may be empty.
	chatID  string
	userIDs []string
}

type Manager struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	publish    chan publication
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	manager *Manager

	mu    sync.Mutex
	chats map[string]bool
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan publication, 64),
	}
}

func (m *Manager) Start() {
	log := logger.L()
	for {
		select {
		case client := <-m.register:
			m.clients[client] = true
			log.Infow("websocket client registered", "userId", client.userID, "clients", len(m.clients))

		case client := <-m.unregister:
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
			log.Infow("websocket client unregistered", "userId", client.userID, "clients", len(m.clients))

		case pub := <-m.publish:
			data, err := json.Marshal(pub.event)
			if err != nil {
				log.Errorw("marshaling event", "type", pub.event.Type, "err", err)
				continue
			}
			for client := range m.clients {
				if !client.wants(pub) {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(m.clients, client)
				}
			}
		}
	}
}

// PublishToChat delivers an event to every client subscribed to the chat.
func (m *Manager) PublishToChat(chatID string, event Event) {
	m.publish <- publication{event: event, chatID: chatID}
}

// PublishToUsers delivers an event to every socket owned by the given
// users, regardless of chat subscriptions. Used for chat-list updates.
func (m *Manager) PublishToUsers(userIDs []string, event Event) {
	m.publish <- publication{event: event, userIDs: userIDs}
}

func (c *Client) wants(pub publication) bool {
	if pub.chatID != "" && c.subscribedTo(pub.chatID) {
		return true
	}
	for _, id := range pub.userIDs {
		if id == c.userID {
			return true
		}
	}
	return false
}

func (c *Client) subscribedTo(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chats[chatID]
}

func (c *Client) subscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats[chatID] = true
}

func (c *Client) unsubscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.chats, chatID)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades an authenticated request. The caller resolves the user
// id before upgrading; unauthenticated requests never reach this point.
func Handler(manager *Manager, userID string, w http.ResponseWriter, r *http.Request) {
	log := logger.L()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorw("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		conn:    conn,
		userID:  userID,
		send:    make(chan []byte, 256),
		manager: manager,
		chats:   make(map[string]bool),
	}
	manager.register <- client

	go client.writePump()
	go client.readPump()
}

type inboundMessage struct {
	Type    string `json:"type"`
	Payload struct {
		ChatID string `json:"chatId"`
	} `json:"payload"`
}

func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Errorw("websocket read", "userId", c.userID, "err", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe_chat":
			if msg.Payload.ChatID != "" {
				c.subscribe(msg.Payload.ChatID)
			}
		case "unsubscribe_chat":
			if msg.Payload.ChatID != "" {
				c.unsubscribe(msg.Payload.ChatID)
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
