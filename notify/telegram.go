package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TelegramClient отправляет сообщения в канал через Bot API.
// Telegram-библиотеки в проекте нет — достаточно одного POST-запроса
// sendMessage с JSON-телом.
type TelegramClient struct {
	botToken   string
	chatID     string
	httpClient *http.Client
}

func NewTelegramClient(botToken, chatID string) *TelegramClient {
	return &TelegramClient{
		botToken: botToken,
		chatID:   chatID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured сообщает, заданы ли токен бота и канал уведомлений.
func (c *TelegramClient) Configured() bool {
	return c.botToken != "" && c.chatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage отправляет HTML-форматированное сообщение в настроенный канал.
func (c *TelegramClient) SendMessage(ctx context.Context, text string) error {
	if !c.Configured() {
		return errors.New("telegram client is not configured")
	}
	return c.SendTo(ctx, c.chatID, text)
}

// SendTo отправляет сообщение в произвольный чат (личные ответы бота).
func (c *TelegramClient) SendTo(ctx context.Context, chatID, text string) error {
	if c.botToken == "" {
		return errors.New("telegram bot token is not configured")
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram request: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %w", err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram api rejected message: %s", result.Description)
	}
	return nil
}

// TestConnection шлёт тестовое сообщение в канал.
func (c *TelegramClient) TestConnection(ctx context.Context) error {
	message := "🔧 <b>Тест уведомлений</b>\n\n✅ Telegram бот успешно подключен!"
	return c.SendMessage(ctx, message)
}

func formatPlayerJoined(event PlayerJoinedEvent) string {
	var b strings.Builder
	b.WriteString("👤 <b>Новый игрок присоединился!</b>\n\n")
	fmt.Fprintf(&b, "📋 <b>Матч:</b> %s\n", event.MatchName)
	fmt.Fprintf(&b, "🎮 <b>Игрок:</b> %s\n", event.PlayerName)
	fmt.Fprintf(&b, "👥 <b>Игроков:</b> %d/%d\n\n", event.CurrentPlayers, event.MaxPlayers)
	if event.CurrentPlayers >= event.MaxPlayers {
		b.WriteString("✅ <b>Матч заполнен! Игра может начаться!</b>")
	} else {
		b.WriteString("⏳ Ожидаем еще игроков...")
	}
	return b.String()
}

func formatGameStarted(event GameStartedEvent) string {
	players := "Нет игроков"
	if len(event.Players) > 0 {
		players = strings.Join(event.Players, ", ")
	}

	var b strings.Builder
	b.WriteString("🎮 <b>Игра началась!</b>\n\n")
	fmt.Fprintf(&b, "📋 <b>Матч:</b> %s\n", event.MatchName)
	fmt.Fprintf(&b, "👥 <b>Формат:</b> %dv%d\n", event.TeamSize, event.TeamSize)
	fmt.Fprintf(&b, "🎯 <b>Игроки:</b> %s\n\n", players)
	b.WriteString("🔴 Матч сейчас в процессе!")
	return b.String()
}

func formatGameFinished(event GameFinishedEvent) string {
	winner := "Ничья"
	switch {
	case event.TeamAScore > event.TeamBScore:
		winner = "Команда А"
	case event.TeamBScore > event.TeamAScore:
		winner = "Команда Б"
	}

	teamA := "Пустая команда"
	if len(event.TeamA) > 0 {
		teamA = strings.Join(event.TeamA, ", ")
	}
	teamB := "Пустая команда"
	if len(event.TeamB) > 0 {
		teamB = strings.Join(event.TeamB, ", ")
	}

	var b strings.Builder
	b.WriteString("🏆 <b>Игра завершена!</b>\n\n")
	fmt.Fprintf(&b, "📋 <b>Матч:</b> %s\n", event.MatchName)
	fmt.Fprintf(&b, "📊 <b>Счет:</b> %d : %d\n", event.TeamAScore, event.TeamBScore)
	fmt.Fprintf(&b, "👑 <b>Победитель:</b> %s\n\n", winner)
	fmt.Fprintf(&b, "👥 <b>Команда А:</b> %s\n", teamA)
	fmt.Fprintf(&b, "👥 <b>Команда Б:</b> %s", teamB)
	return b.String()
}
