package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evo-faceit/arena-server/models"
)

type ChatRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	ListByMatch(ctx context.Context, matchID string) ([]*models.ChatMessage, error)
	DeleteByMatch(ctx context.Context, matchID string) error
}

type postgresChatRepository struct {
	db *sql.DB
}

func NewPostgresChatRepository(db *sql.DB) ChatRepository {
	return &postgresChatRepository{db: db}
}

func (r *postgresChatRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, match_id, user_id, user_name, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.MatchID,
		message.UserID,
		message.UserName,
		message.Message,
		message.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// ListByMatch возвращает сообщения в порядке вставки.
func (r *postgresChatRepository) ListByMatch(ctx context.Context, matchID string) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, match_id, user_id, user_name, message, created_at
		FROM chat_messages
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		scanErr := rows.Scan(
			&msg.ID,
			&msg.MatchID,
			&msg.UserID,
			&msg.UserName,
			&msg.Message,
			&msg.Timestamp,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", scanErr)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}
	return messages, nil
}

// DeleteByMatch удаляет все сообщения матча (каскад при удалении матча).
// Отсутствие сообщений не считается ошибкой.
func (r *postgresChatRepository) DeleteByMatch(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE match_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	return nil
}
