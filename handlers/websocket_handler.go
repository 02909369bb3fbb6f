package handlers

import (
	"log"
	"net/http"

	"github.com/evo-faceit/arena-server/lobby"
	"github.com/evo-faceit/arena-server/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS для API ограничен списком origin'ов; для websocket
		// подключение разрешается всем, комната не несёт приватных данных.
		return true
	},
}

type WebSocketHandler struct {
	hub          *lobby.Hub
	matchService services.MatchService
}

func NewWebSocketHandler(hub *lobby.Hub, matchService services.MatchService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		matchService: matchService,
	}
}

// ServeLobby обрабатывает GET /ws/matches/{matchID}: подписка на
// события лобби (чат, состав, статус) конкретного матча.
func (h *WebSocketHandler) ServeLobby(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.matchService.GetByID(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту HTTP-ошибкой.
		log.Printf("lobby: failed to upgrade connection for match %s: %v", matchID, err)
		return
	}

	client := &lobby.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: matchID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
