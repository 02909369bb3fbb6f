package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const deliveryTimeout = 15 * time.Second

// TelegramConsumer подписывается на события матчей и доставляет их
// в Telegram-канал. Ошибки доставки только логируются.
type TelegramConsumer struct {
	client *TelegramClient
	logger *slog.Logger
	subs   []*nats.Subscription
}

func NewTelegramConsumer(client *TelegramClient, logger *slog.Logger) *TelegramConsumer {
	return &TelegramConsumer{
		client: client,
		logger: logger,
	}
}

// Start вешает обработчики на все subjects матчей.
func (c *TelegramConsumer) Start(bus *Bus) error {
	handlers := map[string]nats.MsgHandler{
		SubjectPlayerJoined: c.handleEvent(func(data []byte) (string, error) {
			var event PlayerJoinedEvent
			if err := json.Unmarshal(data, &event); err != nil {
				return "", err
			}
			return formatPlayerJoined(event), nil
		}),
		SubjectGameStarted: c.handleEvent(func(data []byte) (string, error) {
			var event GameStartedEvent
			if err := json.Unmarshal(data, &event); err != nil {
				return "", err
			}
			return formatGameStarted(event), nil
		}),
		SubjectGameFinished: c.handleEvent(func(data []byte) (string, error) {
			var event GameFinishedEvent
			if err := json.Unmarshal(data, &event); err != nil {
				return "", err
			}
			return formatGameFinished(event), nil
		}),
	}

	for subject, handler := range handlers {
		sub, err := bus.Subscribe(subject, handler)
		if err != nil {
			c.Stop()
			return err
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

// Stop снимает подписки.
func (c *TelegramConsumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Error("failed to unsubscribe", slog.Any("error", err))
		}
	}
	c.subs = nil
}

func (c *TelegramConsumer) handleEvent(format func([]byte) (string, error)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		text, err := format(msg.Data)
		if err != nil {
			c.logger.Error("failed to decode notification event",
				slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := c.client.SendMessage(ctx, text); err != nil {
			c.logger.Error("failed to deliver telegram notification",
				slog.String("subject", msg.Subject), slog.Any("error", err))
		}
	}
}
