package lobby

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Типы событий, рассылаемых в комнату лобби.
const (
	EventChatMessage   = "CHAT_MESSAGE"
	EventPlayerJoined  = "PLAYER_JOINED"
	EventPlayerLeft    = "PLAYER_LEFT"
	EventMatchStarted  = "MATCH_STARTED"
	EventMatchFinished = "MATCH_FINISHED"
	EventMatchDeleted  = "MATCH_DELETED"
)

// Event — сообщение, уходящее подписчикам комнаты матча.
type Event struct {
	Type    string      `json:"type"`
	MatchID string      `json:"match_id"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub держит websocket-подписчиков лобби, по комнате на матч.
// Клиенты, не успевающие читать, пропускают сообщения: канал Send
// буферизован, при переполнении событие для этого клиента теряется.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// Run обслуживает регистрацию и отключение клиентов. Запускается
// одной горутиной при старте процесса.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, registered := clients[client]; registered {
					delete(clients, client)
					client.closeSend()
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToMatch рассылает событие всем подписчикам комнаты матча.
func (h *Hub) BroadcastToMatch(matchID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("lobby: failed to marshal event for match %s: %v", matchID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[matchID] {
		select {
		case client.Send <- data:
		default:
			// Клиент не успевает читать, событие для него пропускается.
		}
	}
}

// RoomSize возвращает число подписчиков комнаты.
func (h *Hub) RoomSize(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[matchID])
}

// Client — одно websocket-подключение к комнате лобби.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	Room string

	closeOnce sync.Once
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// ReadPump читает входящие фреймы ради keepalive; содержимое от клиентов
// игнорируется — чат идёт через HTTP API.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("lobby: client read error in room %s: %v", c.Room, err)
			}
			return
		}
	}
}

// WritePump пишет события клиенту и поддерживает соединение ping-фреймами.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
