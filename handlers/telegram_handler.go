package handlers

import (
	"errors"
	"net/http"

	"github.com/evo-faceit/arena-server/notify"
)

// TelegramHandler — админские ручки управления ботом уведомлений.
type TelegramHandler struct {
	client  *notify.TelegramClient
	enabled bool
}

func NewTelegramHandler(client *notify.TelegramClient, enabled bool) *TelegramHandler {
	return &TelegramHandler{
		client:  client,
		enabled: enabled,
	}
}

// TestHandler обрабатывает POST /api/telegram/test
func (h *TelegramHandler) TestHandler(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		badRequestResponse(w, r, errors.New("telegram notifications are disabled"))
		return
	}

	if err := h.client.TestConnection(r.Context()); err != nil {
		response := jsonResponse{"success": false, "message": "failed to send test message"}
		if writeErr := writeJSON(w, http.StatusOK, response, nil); writeErr != nil {
			serverErrorResponse(w, r, writeErr)
		}
		return
	}

	response := jsonResponse{"success": true, "message": "Telegram test sent!"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StatusHandler обрабатывает GET /api/telegram/status
func (h *TelegramHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{
		"success":    true,
		"enabled":    h.enabled,
		"configured": h.client.Configured(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// NotifyHandler обрабатывает POST /api/telegram/notify: произвольное
// сообщение в канал от имени администратора.
func (h *TelegramHandler) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		badRequestResponse(w, r, errors.New("telegram notifications are disabled"))
		return
	}

	var input struct {
		Message string `json:"message"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Message == "" {
		badRequestResponse(w, r, errors.New("message is required"))
		return
	}

	if err := h.client.SendMessage(r.Context(), input.Message); err != nil {
		response := jsonResponse{"success": false, "message": "failed to send notification"}
		if writeErr := writeJSON(w, http.StatusOK, response, nil); writeErr != nil {
			serverErrorResponse(w, r, writeErr)
		}
		return
	}

	response := jsonResponse{"success": true, "message": "notification sent"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
