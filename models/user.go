package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	PasswordHash string     `json:"-"`
	Avatar       *string    `json:"avatar,omitempty"`
	Banner       *string    `json:"banner,omitempty"`
	TelegramID   *string    `json:"telegram_id,omitempty"`
	Role         UserRole   `json:"role"`
	Rating       int        `json:"rating"`
	Kills        int        `json:"kills"`
	Deaths       int        `json:"deaths"`
	KD           float64    `json:"kd"`
	Level        int        `json:"level"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	TotalMatches int        `json:"total_matches"`
	CreatedAt    time.Time  `json:"registration_date"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credentials для обычного входа по email/паролю.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
