package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"chatspace/internal/middleware"
	"chatspace/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChannelAuthorizer decides whether a user may subscribe to a channel.
// Satisfied by service.ChannelService.
type ChannelAuthorizer interface {
	Authorize(ctx context.Context, user *model.User, channel string) bool
}

// UserLoader resolves an authenticated user (with roles) by id.
type UserLoader func(ctx context.Context, id uuid.UUID) (*model.User, error)

// Client represents a single connected WebSocket client
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	User     *model.User
	channels map[string]bool
	mu       sync.Mutex
}

// frame is the inbound client protocol: subscribe/unsubscribe to channels.
type frame struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// ack is sent back after a subscription attempt.
type ack struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
}

func (c *Client) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[channel]
}

func (c *Client) subscribe(channel string) {
	c.mu.Lock()
	c.channels[channel] = true
	c.mu.Unlock()
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.channels, channel)
	c.mu.Unlock()
}

// broadcast carries a payload bound for every subscriber of a channel.
type broadcast struct {
	channel string
	payload []byte
}

// Hub maintains the set of active clients and routes channel broadcasts
type Hub struct {
	clients    map[*Client]bool
	broadcasts chan broadcast
	register   chan *Client
	unregister chan *Client
	authorizer ChannelAuthorizer
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub(authorizer ChannelAuthorizer) *Hub {
	return &Hub{
		broadcasts: make(chan broadcast, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		authorizer: authorizer,
	}
}

// BroadcastToChannel delivers payload to every client subscribed to channel.
// Implements service.Notifier.
func (h *Hub) BroadcastToChannel(channel string, payload []byte) {
	h.broadcasts <- broadcast{channel: channel, payload: payload}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Println("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Println("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcasts:
			h.mu.Lock()
			for client := range h.clients {
				if !client.subscribed(msg.channel) {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps subscription frames from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.Channel == "" {
			continue
		}

		switch f.Action {
		case "subscribe":
			ok := c.Hub.authorizer.Authorize(context.Background(), c.User, f.Channel)
			if ok {
				c.subscribe(f.Channel)
			}
			c.sendAck(f.Channel, ok)
		case "unsubscribe":
			c.unsubscribe(f.Channel)
		}
	}
}

func (c *Client) sendAck(channel string, ok bool) {
	payload, err := json.Marshal(ack{Event: "subscription", Channel: channel, OK: ok})
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

// ServeWs handles websocket requests from the peer
func ServeWs(hub *Hub, c *gin.Context, loadUser UserLoader) {
	// Authenticate via token query param
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	subject, err := middleware.ParseUserID(tokenString)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid subject claim")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	user, err := loadUser(c.Request.Context(), userID)
	if err != nil {
		log.Println("WebSocket connection rejected: unknown user")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		User:     user,
		channels: make(map[string]bool),
	}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
