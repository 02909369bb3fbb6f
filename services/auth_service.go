package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/repositories"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	startingRating    = 1000
	startingLevel     = 1
)

var ErrPasswordTooShort = errors.New("password is too short")

type RegisterInput struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.User, error)
	AuthenticateTelegram(ctx context.Context, telegramID string) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{
		userRepo: userRepo,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	nickname := strings.TrimSpace(input.Nickname)
	if email == "" || nickname == "" {
		return nil, ErrInvalidCredentials
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := newPlayer(email, nickname, string(hash))
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrEmailTaken
		case errors.Is(err, repositories.ErrUserNicknameConflict):
			return nil, ErrNicknameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(creds.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err == nil {
		user.LastLogin = &now
	}

	return user, nil
}

// AuthenticateTelegram находит пользователя по Telegram ID или заводит
// нового с плейсхолдерными email/никнеймом — вход по временной ссылке
// из бота не требует пароля.
func (s *authService) AuthenticateTelegram(ctx context.Context, telegramID string) (*models.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		now := time.Now().UTC()
		if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err == nil {
			user.LastLogin = &now
		}
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by telegram id: %w", err)
	}

	// Пароль для таких аккаунтов не используется, хэшируем случайное значение.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	user = newPlayer(
		fmt.Sprintf("telegram_%s@telegram.user", telegramID),
		fmt.Sprintf("User%s", telegramID),
		string(hash),
	)
	user.TelegramID = &telegramID
	now := time.Now().UTC()
	user.LastLogin = &now

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create telegram user: %w", err)
	}
	return user, nil
}

func newPlayer(email, nickname, passwordHash string) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Nickname:     nickname,
		PasswordHash: passwordHash,
		Role:         models.RolePlayer,
		Rating:       startingRating,
		Level:        startingLevel,
		CreatedAt:    time.Now().UTC(),
	}
}
