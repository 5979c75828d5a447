package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/middleware"
	"blockjack-backend/internal/models"
	"blockjack-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type     string `json:"type"`
	PlayerID string `json:"-"`
	Data     any    `json:"data"`
}

type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	send     chan *Message
}

// WebSocketHub tracks live connections per player. Only the hub goroutine
// touches the client map; only a client's write pump writes to its conn.
type WebSocketHub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	log        logrus.FieldLogger
}

func NewWebSocketHub(log logrus.FieldLogger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		log:        log.WithField("component", "ws-hub"),
	}
}

// Run serves the hub until ctx is cancelled. Connections that arrive or
// leave afterwards are not tracked.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-hub.register:
			set, ok := hub.clients[client.PlayerID]
			if !ok {
				set = make(map[*Client]bool)
				hub.clients[client.PlayerID] = set
			}
			set[client] = true
			hub.log.WithField("player", client.PlayerID).Debug("client registered")

		case client := <-hub.unregister:
			if set, ok := hub.clients[client.PlayerID]; ok && set[client] {
				delete(set, client)
				close(client.send)
				if len(set) == 0 {
					delete(hub.clients, client.PlayerID)
				}
				hub.log.WithField("player", client.PlayerID).Debug("client unregistered")
			}

		case message := <-hub.broadcast:
			for client := range hub.clients[message.PlayerID] {
				select {
				case client.send <- message:
				default:
					hub.log.WithField("player", client.PlayerID).Warn("client too slow, dropping message")
				}
			}
		}
	}
}

// SendToPlayer queues a message for every connection of playerID. It never
// blocks the caller.
func (hub *WebSocketHub) SendToPlayer(playerID, msgType string, data any) {
	select {
	case hub.broadcast <- &Message{Type: msgType, PlayerID: playerID, Data: data}:
	default:
		hub.log.WithField("player", playerID).Warn("broadcast queue full, dropping message")
	}
}

// add registers c and reports false once the hub has stopped.
func (hub *WebSocketHub) add(c *Client) bool {
	select {
	case hub.register <- c:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) remove(c *Client) {
	select {
	case hub.unregister <- c:
	case <-hub.done:
		close(c.send)
	}
}

type WebSocketHandler struct {
	hub   *WebSocketHub
	games *services.GameService
	log   logrus.FieldLogger
}

func NewWebSocketHandler(hub *WebSocketHub, games *services.GameService, log logrus.FieldLogger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, games: games, log: log.WithField("component", "ws")}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade to websocket")
		return
	}

	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
		send:     make(chan *Message, clientSendSize),
	}
	go client.writePump()

	if !h.hub.add(client) {
		close(client.send)
		return
	}
	defer h.hub.remove(client)

	h.sendSnapshot(c.Request.Context(), client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("websocket error")
			}
			return
		}

		switch msg.Type {
		case "PING":
			client.queue(&Message{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
		case "SNAPSHOT":
			h.sendSnapshot(c.Request.Context(), client)
		}
	}
}

func (h *WebSocketHandler) sendSnapshot(ctx context.Context, client *Client) {
	games := gin.H{}
	for _, v := range []models.Variant{models.VariantNaive, models.VariantSecure} {
		view, err := h.games.Get(ctx, v, client.PlayerID)
		if err != nil {
			h.log.WithError(err).WithField("player", client.PlayerID).Warn("failed to load game for snapshot")
			continue
		}
		games[string(v)] = view
	}
	client.queue(&Message{Type: "GAME_SNAPSHOT", Data: games})
}

// queue is only called from the connection's read loop, before the hub
// has been told to close send.
func (c *Client) queue(msg *Message) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for msg := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
