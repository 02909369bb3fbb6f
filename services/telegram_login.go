package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TelegramLoginStore выдаёт одноразовые короткоживущие токены для входа
// по ссылке из Telegram-бота. Состояние явно инжектируется при старте
// процесса и живёт до его остановки; просроченные токены чистит
// периодическая задача (см. Scheduler).
type TelegramLoginStore struct {
	ttl time.Duration

	mu     sync.Mutex
	tokens map[string]loginToken
}

type loginToken struct {
	telegramID string
	expiresAt  time.Time
}

func NewTelegramLoginStore(ttl time.Duration) *TelegramLoginStore {
	return &TelegramLoginStore{
		ttl:    ttl,
		tokens: make(map[string]loginToken),
	}
}

// Issue создаёт токен входа для Telegram-пользователя.
func (s *TelegramLoginStore) Issue(telegramID string) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.tokens[token] = loginToken{
		telegramID: telegramID,
		expiresAt:  time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return token
}

// Consume одноразово обменивает токен на Telegram ID.
func (s *TelegramLoginStore) Consume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", ErrLoginTokenInvalid
	}
	delete(s.tokens, token)

	if time.Now().After(entry.expiresAt) {
		return "", ErrLoginTokenInvalid
	}
	return entry.telegramID, nil
}

// Purge удаляет просроченные токены и возвращает их количество.
func (s *TelegramLoginStore) Purge() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
			purged++
		}
	}
	return purged
}

// Len возвращает число живых записей (включая ещё не вычищенные просроченные).
func (s *TelegramLoginStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
