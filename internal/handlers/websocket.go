package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes balance and leaderboard updates to connected
// game clients. It implements services.Broadcaster.
type WebSocketHandler struct {
	hub *webSocketHub
	log *zap.Logger
}

type webSocketHub struct {
	clients    map[string]map[*websocket.Conn]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *wsMessage
}

type wsClient struct {
	UserID string
	Conn   *websocket.Conn
}

type wsMessage struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func NewWebSocketHandler(log *zap.Logger) *WebSocketHandler {
	hub := &webSocketHub{
		clients:    make(map[string]map[*websocket.Conn]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *wsMessage, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub, log: log}
}

func (hub *webSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			if hub.clients[client.UserID] == nil {
				hub.clients[client.UserID] = make(map[*websocket.Conn]bool)
			}
			hub.clients[client.UserID][client.Conn] = true

		case client := <-hub.unregister:
			if conns, ok := hub.clients[client.UserID]; ok {
				delete(conns, client.Conn)
				if len(conns) == 0 {
					delete(hub.clients, client.UserID)
				}
			}

		case msg := <-hub.broadcast:
			if msg.UserID != "" {
				for conn := range hub.clients[msg.UserID] {
					conn.WriteJSON(msg)
				}
				continue
			}
			for _, conns := range hub.clients {
				for conn := range conns {
					conn.WriteJSON(msg)
				}
			}
		}
	}
}

// HandleWebSocket is GET /api/ws?userId=...
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing userId"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{UserID: userID, Conn: conn}
	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", zap.Error(err))
			}
			break
		}

		if msg.Type == "PING" {
			conn.WriteJSON(&wsMessage{Type: "PONG"})
		}
	}
}

// BroadcastBalance pushes the merged balance to every connection of one
// player.
func (h *WebSocketHandler) BroadcastBalance(userID string, balance float64) {
	select {
	case h.hub.broadcast <- &wsMessage{Type: "BALANCE_UPDATE", UserID: userID, Data: balance}:
	default:
		// Dropping a live update is preferable to stalling a sync.
	}
}

// BroadcastLeaderboardChanged tells every client to refetch the board.
func (h *WebSocketHandler) BroadcastLeaderboardChanged() {
	select {
	case h.hub.broadcast <- &wsMessage{Type: "LEADERBOARD_CHANGED"}:
	default:
	}
}
