package services

import "errors"

// Общие ошибки сервисного слоя. Маппинг в HTTP-статусы живёт в handlers.
var (
	// Ресурс не найден
	ErrNotFound      = errors.New("requested resource not found")
	ErrMatchNotFound = errors.New("match not found")
	ErrUserNotFound  = errors.New("user not found")

	// Ошибки валидации и бизнес-правил
	ErrMatchNameRequired = errors.New("match name is required")
	ErrInvalidTeamSize   = errors.New("team size must be between 2 and 5")
	ErrMatchFull         = errors.New("match is full")
	ErrMessageRequired   = errors.New("message text is required")
	ErrNicknameRequired  = errors.New("nickname is required")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrNotMatchParticipant = errors.New("user is not a participant of this match")

	// Конфликты
	ErrEmailTaken    = errors.New("email address is already in use")
	ErrNicknameTaken = errors.New("nickname is already in use")

	// Telegram login
	ErrLoginTokenInvalid = errors.New("login token is invalid or expired")
)
