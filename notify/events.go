package notify

// Subjects шины уведомлений. Движок матчей публикует события,
// telegram-консьюмер доставляет их в канал.
const (
	SubjectPlayerJoined = "arena.match.player_joined"
	SubjectGameStarted  = "arena.match.game_started"
	SubjectGameFinished = "arena.match.game_finished"
)

type PlayerJoinedEvent struct {
	MatchName      string `json:"match_name"`
	PlayerName     string `json:"player_name"`
	CurrentPlayers int    `json:"current_players"`
	MaxPlayers     int    `json:"max_players"`
}

type GameStartedEvent struct {
	MatchName string   `json:"match_name"`
	Players   []string `json:"players"`
	TeamSize  int      `json:"team_size"`
}

type GameFinishedEvent struct {
	MatchName  string   `json:"match_name"`
	TeamAScore int      `json:"team_a_score"`
	TeamBScore int      `json:"team_b_score"`
	TeamA      []string `json:"team_a"`
	TeamB      []string `json:"team_b"`
}

// Notifier — то, что движку матчей нужно от системы уведомлений.
// Все вызовы fire-and-forget: ошибки логируются и никогда не
// возвращаются инициировавшей операции.
type Notifier interface {
	NotifyPlayerJoined(event PlayerJoinedEvent)
	NotifyGameStarted(event GameStartedEvent)
	NotifyGameFinished(event GameFinishedEvent)
}

// NopNotifier — заглушка для окружений без настроенных уведомлений.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) NotifyPlayerJoined(PlayerJoinedEvent) {}
func (NopNotifier) NotifyGameStarted(GameStartedEvent)   {}
func (NopNotifier) NotifyGameFinished(GameFinishedEvent) {}
