package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LoginTokenIssuer выдаёт одноразовый токен входа для Telegram-пользователя.
type LoginTokenIssuer interface {
	Issue(telegramID string) string
}

// LoginBot — long-poll воркер команд бота. Единственная команда /start:
// в ответ пользователь получает персональную ссылку для входа на сайт.
type LoginBot struct {
	client     *TelegramClient
	issuer     LoginTokenIssuer
	serverURL  string
	logger     *slog.Logger
	httpClient *http.Client
}

const pollTimeout = 30 * time.Second

func NewLoginBot(client *TelegramClient, issuer LoginTokenIssuer, serverURL string, logger *slog.Logger) *LoginBot {
	return &LoginBot{
		client:    client,
		issuer:    issuer,
		serverURL: strings.TrimRight(serverURL, "/"),
		logger:    logger,
		httpClient: &http.Client{
			Timeout: pollTimeout + 10*time.Second,
		},
	}
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
		} `json:"from"`
	} `json:"message"`
}

type getUpdatesResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []telegramUpdate `json:"result"`
}

// Run крутит getUpdates до отмены контекста. Ошибки поллинга не фатальны,
// после каждой делается пауза перед повтором.
func (b *LoginBot) Run(ctx context.Context) {
	b.logger.Info("telegram login bot started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram login bot stopped")
			return
		default:
		}

		updates, err := b.fetchUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logger.Error("failed to fetch telegram updates", slog.Any("error", err))
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *LoginBot) fetchUpdates(ctx context.Context, offset int64) ([]telegramUpdate, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(int(pollTimeout/time.Second)))
	query.Set("allowed_updates", `["message"]`)
	if offset > 0 {
		query.Set("offset", strconv.FormatInt(offset, 10))
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?%s", b.client.botToken, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build getUpdates request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call telegram api: %w", err)
	}
	defer resp.Body.Close()

	var result getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode getUpdates response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram api rejected getUpdates: %s", result.Description)
	}
	return result.Result, nil
}

func (b *LoginBot) handleUpdate(ctx context.Context, update telegramUpdate) {
	if update.Message == nil || !strings.HasPrefix(update.Message.Text, "/start") {
		return
	}

	telegramID := strconv.FormatInt(update.Message.From.ID, 10)
	token := b.issuer.Issue(telegramID)
	link := fmt.Sprintf("%s/telegram-login/%s", b.serverURL, token)

	var msg strings.Builder
	fmt.Fprintf(&msg, "👋 Привет, %s!\n\n", update.Message.From.FirstName)
	msg.WriteString("🔑 Твоя ссылка для входа на сайт:\n")
	fmt.Fprintf(&msg, `<a href="%s">Войти</a>`+"\n\n", link)
	msg.WriteString("⏳ Ссылка одноразовая и действует 10 минут.")

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	if err := b.client.SendTo(ctx, chatID, msg.String()); err != nil {
		b.logger.Error("failed to send login link",
			slog.String("telegram_id", telegramID),
			slog.Any("error", err),
		)
	}
}
