package models

import "time"

// MatchStatus соответствует значениям колонки status в таблице matches.
type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// Match — игровая сессия с фиксированным размером команд.
// MaxPlayers всегда равен TeamSize*2, CurrentPlayers хранит ID игроков
// в порядке присоединения.
type Match struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	TeamSize       int           `json:"team_size"`
	MaxPlayers     int           `json:"max_players"`
	CurrentPlayers []string      `json:"current_players"`
	Status         MatchStatus   `json:"status"`
	CreatedBy      string        `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Results        *MatchResults `json:"results,omitempty"`
}

// HasPlayer сообщает, есть ли игрок в составе матча.
func (m *Match) HasPlayer(userID string) bool {
	for _, id := range m.CurrentPlayers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull — достигнут ли предел состава.
func (m *Match) IsFull() bool {
	return len(m.CurrentPlayers) >= m.MaxPlayers
}

// PlayerStats — статистика одного игрока за матч.
type PlayerStats struct {
	UserID string `json:"user_id"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// MatchResults сохраняются в колонке results (JSONB) и присутствуют
// только у завершённых матчей.
type MatchResults struct {
	ScreenshotURL *string       `json:"screenshot_url,omitempty"`
	TeamAScore    int           `json:"team_a_score"`
	TeamBScore    int           `json:"team_b_score"`
	TeamA         []string      `json:"team_a"`
	TeamB         []string      `json:"team_b"`
	PlayerStats   []PlayerStats `json:"player_stats"`
	UploadedBy    string        `json:"uploaded_by"`
	UploadedAt    time.Time     `json:"uploaded_at"`
}

// StatsFor возвращает kills/deaths игрока из PlayerStats (0/0, если записи нет).
func (r *MatchResults) StatsFor(userID string) (kills, deaths int) {
	for _, ps := range r.PlayerStats {
		if ps.UserID == userID {
			return ps.Kills, ps.Deaths
		}
	}
	return 0, 0
}

// InTeamA: игрок считается в команде A, если присутствует в списке TeamA,
// иначе относится к команде B.
func (r *MatchResults) InTeamA(userID string) bool {
	for _, id := range r.TeamA {
		if id == userID {
			return true
		}
	}
	return false
}
