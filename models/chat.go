package models

import "time"

// ChatMessage — сообщение в лобби матча. Append-only: сообщения никогда
// не редактируются и удаляются только каскадом вместе с матчем.
// UserName — снимок никнейма на момент отправки.
type ChatMessage struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
