package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evo-faceit/arena-server/lobby"
	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/repositories"
	"github.com/google/uuid"
)

// ChatService — шлюз чата лобби: писать могут только текущие участники
// матча, чтение открыто всем.
type ChatService interface {
	PostMessage(ctx context.Context, matchID, userID, text string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, matchID string) ([]*models.ChatMessage, error)
}

type chatService struct {
	chatRepo  repositories.ChatRepository
	matchRepo repositories.MatchRepository
	userRepo  repositories.UserRepository
	hub       *lobby.Hub
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	hub *lobby.Hub,
) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		matchRepo: matchRepo,
		userRepo:  userRepo,
		hub:       hub,
	}
}

// PostMessage добавляет сообщение в чат матча. UserName фиксируется
// как снимок текущего никнейма: последующие переименования не трогают
// старые сообщения.
func (s *chatService) PostMessage(ctx context.Context, matchID, userID, text string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrMessageRequired
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if !match.HasPlayer(userID) {
		return nil, ErrNotMatchParticipant
	}

	message := &models.ChatMessage{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		UserID:    userID,
		UserName:  user.Nickname,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}

	if err := s.chatRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}

	s.hub.BroadcastToMatch(matchID, lobby.Event{
		Type:    lobby.EventChatMessage,
		MatchID: matchID,
		Payload: message,
	})

	return message, nil
}

// ListMessages возвращает сообщения матча в порядке вставки. Чтение
// дешёвое и без побочных эффектов: клиенты опрашивают его часто.
func (s *chatService) ListMessages(ctx context.Context, matchID string) ([]*models.ChatMessage, error) {
	return s.chatRepo.ListByMatch(ctx, matchID)
}
