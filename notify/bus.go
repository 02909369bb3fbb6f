package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const busReadyTimeout = 5 * time.Second

// Bus — встроенный NATS-сервер и подключение к нему. Вынесение уведомлений
// на шину отвязывает задержки и ошибки доставки от пути запрос/ответ:
// публикация не блокирует и не проваливает вызвавшую операцию.
type Bus struct {
	server *natsserver.Server
	conn   *nats.Conn
	logger *slog.Logger
}

// StartEmbeddedBus поднимает in-process NATS на случайном локальном порту.
func StartEmbeddedBus(logger *slog.Logger) (*Bus, error) {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded nats server: %w", err)
	}
	go server.Start()

	if !server.ReadyForConnections(busReadyTimeout) {
		server.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready within %v", busReadyTimeout)
	}

	conn, err := nats.Connect(server.ClientURL(), nats.Name("arena-server"))
	if err != nil {
		server.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded nats server: %w", err)
	}

	return &Bus{
		server: server,
		conn:   conn,
		logger: logger,
	}, nil
}

// Close дренирует подключение и останавливает сервер.
func (b *Bus) Close() {
	if err := b.conn.Drain(); err != nil {
		b.logger.Error("failed to drain nats connection", slog.Any("error", err))
	}
	b.server.Shutdown()
	b.server.WaitForShutdown()
}

// Subscribe регистрирует обработчик на subject шины.
func (b *Bus) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := b.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

func (b *Bus) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to encode notification event",
			slog.String("subject", subject), slog.Any("error", err))
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Error("failed to publish notification event",
			slog.String("subject", subject), slog.Any("error", err))
	}
}

// Notifier-реализация поверх шины.

var _ Notifier = (*Bus)(nil)

func (b *Bus) NotifyPlayerJoined(event PlayerJoinedEvent) {
	b.publish(SubjectPlayerJoined, event)
}

func (b *Bus) NotifyGameStarted(event GameStartedEvent) {
	b.publish(SubjectGameStarted, event)
}

func (b *Bus) NotifyGameFinished(event GameFinishedEvent) {
	b.publish(SubjectGameFinished, event)
}
