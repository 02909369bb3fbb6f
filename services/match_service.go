package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/evo-faceit/arena-server/lobby"
	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/notify"
	"github.com/evo-faceit/arena-server/repositories"
	"github.com/google/uuid"
)

const (
	minTeamSize = 2
	maxTeamSize = 5

	ratingWinDelta  = 30
	ratingLossDelta = -20

	notifyTimeout = 10 * time.Second
)

type CreateMatchInput struct {
	Name     string `json:"name"`
	TeamSize int    `json:"team_size"`
}

type UploadResultsInput struct {
	Screenshot  string               `json:"screenshot,omitempty"`
	TeamAScore  int                  `json:"team_a_score"`
	TeamBScore  int                  `json:"team_b_score"`
	TeamA       []string             `json:"team_a"`
	TeamB       []string             `json:"team_b"`
	PlayerStats []models.PlayerStats `json:"player_stats"`
}

// PlayerOutcome — результат пересчёта статистики одного участника.
// Обновления не транзакционны между игроками: ошибка по одному игроку
// не откатывает остальных, она фиксируется в поле Error.
type PlayerOutcome struct {
	UserID      string  `json:"user_id"`
	Won         bool    `json:"won"`
	RatingDelta int     `json:"rating_delta"`
	NewRating   int     `json:"new_rating"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	KD          float64 `json:"kd"`
	Error       string  `json:"error,omitempty"`
}

type MatchService interface {
	Create(ctx context.Context, createdBy string, input CreateMatchInput) (*models.Match, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	Join(ctx context.Context, matchID, userID string) (*models.Match, error)
	Leave(ctx context.Context, matchID, userID string) (*models.Match, error)
	UploadResults(ctx context.Context, matchID, uploadedBy string, input UploadResultsInput) (*models.Match, []PlayerOutcome, error)
	Delete(ctx context.Context, matchID string) error
}

type matchService struct {
	matchRepo   repositories.MatchRepository
	chatRepo    repositories.ChatRepository
	userRepo    repositories.UserRepository
	notifier    notify.Notifier
	hub         *lobby.Hub
	screenshots *ScreenshotStore
	logger      *slog.Logger

	// Замки по matchID сериализуют read-modify-write над записью матча,
	// иначе два одновременных Join могли бы оба увидеть свободный слот
	// и переполнить состав.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	chatRepo repositories.ChatRepository,
	userRepo repositories.UserRepository,
	notifier notify.Notifier,
	hub *lobby.Hub,
	screenshots *ScreenshotStore,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:   matchRepo,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		hub:         hub,
		screenshots: screenshots,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *matchService) lockMatch(matchID string) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[matchID] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *matchService) Create(ctx context.Context, createdBy string, input CreateMatchInput) (*models.Match, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrMatchNameRequired
	}
	if input.TeamSize < minTeamSize || input.TeamSize > maxTeamSize {
		return nil, ErrInvalidTeamSize
	}

	match := &models.Match{
		ID:             uuid.NewString(),
		Name:           name,
		TeamSize:       input.TeamSize,
		MaxPlayers:     input.TeamSize * 2,
		CurrentPlayers: []string{},
		Status:         models.MatchStatusWaiting,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) GetByID(ctx context.Context, id string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) List(ctx context.Context) ([]*models.Match, error) {
	return s.matchRepo.List(ctx)
}

// Join добавляет игрока в состав. Повторное присоединение — no-op.
// Когда состав достигает maxPlayers, матч переходит в in_progress
// и публикуется уведомление о старте игры.
func (s *matchService) Join(ctx context.Context, matchID, userID string) (*models.Match, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.HasPlayer(userID) {
		return match, nil
	}
	if match.IsFull() {
		return nil, ErrMatchFull
	}

	match.CurrentPlayers = append(match.CurrentPlayers, userID)
	becameFull := match.IsFull()
	if becameFull && match.Status == models.MatchStatusWaiting {
		now := time.Now().UTC()
		match.Status = models.MatchStatusInProgress
		match.StartedAt = &now
	}

	if err := s.matchRepo.Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to join match: %w", err)
	}

	s.hub.BroadcastToMatch(match.ID, lobby.Event{
		Type:    lobby.EventPlayerJoined,
		MatchID: match.ID,
		Payload: match,
	})

	go s.announceJoin(match, user.Nickname, becameFull)

	return match, nil
}

// announceJoin публикует уведомления после успешного присоединения.
// Выполняется вне пути запроса: задержка или ошибка доставки не влияет
// на уже закоммиченное изменение.
func (s *matchService) announceJoin(match *models.Match, playerName string, becameFull bool) {
	s.notifier.NotifyPlayerJoined(notify.PlayerJoinedEvent{
		MatchName:      match.Name,
		PlayerName:     playerName,
		CurrentPlayers: len(match.CurrentPlayers),
		MaxPlayers:     match.MaxPlayers,
	})

	if !becameFull {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	s.notifier.NotifyGameStarted(notify.GameStartedEvent{
		MatchName: match.Name,
		Players:   s.resolveNicknames(ctx, match.CurrentPlayers),
		TeamSize:  match.TeamSize,
	})
	s.hub.BroadcastToMatch(match.ID, lobby.Event{
		Type:    lobby.EventMatchStarted,
		MatchID: match.ID,
		Payload: match,
	})
}

// Leave убирает игрока из состава. Выход разрешён из матча в любом
// статусе, отсутствие игрока в составе — no-op. Уведомления не шлются.
func (s *matchService) Leave(ctx context.Context, matchID, userID string) (*models.Match, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.HasPlayer(userID) {
		return match, nil
	}

	players := make([]string, 0, len(match.CurrentPlayers))
	for _, id := range match.CurrentPlayers {
		if id != userID {
			players = append(players, id)
		}
	}
	match.CurrentPlayers = players

	if err := s.matchRepo.Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to leave match: %w", err)
	}

	s.hub.BroadcastToMatch(match.ID, lobby.Event{
		Type:    lobby.EventPlayerLeft,
		MatchID: match.ID,
		Payload: match,
	})

	return match, nil
}

// UploadResults фиксирует счёт, пересчитывает статистику участников
// и переводит матч в completed. Обновления игроков независимы друг от
// друга; результаты матча коммитятся безотносительно их исхода.
func (s *matchService) UploadResults(ctx context.Context, matchID, uploadedBy string, input UploadResultsInput) (*models.Match, []PlayerOutcome, error) {
	unlock := s.lockMatch(matchID)
	defer unlock()

	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	results := &models.MatchResults{
		TeamAScore:  input.TeamAScore,
		TeamBScore:  input.TeamBScore,
		TeamA:       input.TeamA,
		TeamB:       input.TeamB,
		PlayerStats: input.PlayerStats,
		UploadedBy:  uploadedBy,
		UploadedAt:  time.Now().UTC(),
	}

	if input.Screenshot != "" {
		if url := s.screenshots.Store(ctx, match.ID, input.Screenshot); url != "" {
			results.ScreenshotURL = &url
		}
	}

	outcomes := s.applyOutcomes(ctx, match, results)

	now := time.Now().UTC()
	match.Results = results
	match.Status = models.MatchStatusCompleted
	match.CompletedAt = &now

	if err := s.matchRepo.Update(ctx, match); err != nil {
		return nil, nil, fmt.Errorf("failed to save match results: %w", err)
	}

	s.hub.BroadcastToMatch(match.ID, lobby.Event{
		Type:    lobby.EventMatchFinished,
		MatchID: match.ID,
		Payload: match,
	})

	go s.announceFinish(match, results)

	return match, outcomes, nil
}

// applyOutcomes пересчитывает рейтинг и статистику каждого участника.
// Победа: +30, иначе −20, рейтинг не опускается ниже нуля. KD считается
// по kills/deaths этого матча; при deaths == 0 KD равен kills.
func (s *matchService) applyOutcomes(ctx context.Context, match *models.Match, results *models.MatchResults) []PlayerOutcome {
	outcomes := make([]PlayerOutcome, 0, len(match.CurrentPlayers))

	for _, userID := range match.CurrentPlayers {
		kills, deaths := results.StatsFor(userID)

		var won bool
		if results.InTeamA(userID) {
			won = results.TeamAScore > results.TeamBScore
		} else {
			won = results.TeamBScore > results.TeamAScore
		}

		delta := ratingLossDelta
		if won {
			delta = ratingWinDelta
		}

		kd := float64(kills)
		if deaths > 0 {
			kd = float64(kills) / float64(deaths)
		}

		outcome := PlayerOutcome{
			UserID:      userID,
			Won:         won,
			RatingDelta: delta,
			Kills:       kills,
			Deaths:      deaths,
			KD:          kd,
		}

		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			s.logger.Error("failed to load user for stat update",
				slog.String("match_id", match.ID), slog.String("user_id", userID), slog.Any("error", err))
			continue
		}

		newRating := user.Rating + delta
		if newRating < 0 {
			newRating = 0
		}
		outcome.NewRating = newRating

		err = s.userRepo.ApplyMatchOutcome(ctx, userID, repositories.MatchOutcomeUpdate{
			Rating: newRating,
			KD:     kd,
			Kills:  kills,
			Deaths: deaths,
			Won:    won,
		})
		if err != nil {
			outcome.Error = err.Error()
			s.logger.Error("failed to apply match outcome",
				slog.String("match_id", match.ID), slog.String("user_id", userID), slog.Any("error", err))
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (s *matchService) announceFinish(match *models.Match, results *models.MatchResults) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	s.notifier.NotifyGameFinished(notify.GameFinishedEvent{
		MatchName:  match.Name,
		TeamAScore: results.TeamAScore,
		TeamBScore: results.TeamBScore,
		TeamA:      s.resolveNicknames(ctx, results.TeamA),
		TeamB:      s.resolveNicknames(ctx, results.TeamB),
	})
}

// Delete удаляет матч и каскадно все сообщения его чата.
func (s *matchService) Delete(ctx context.Context, matchID string) error {
	unlock := s.lockMatch(matchID)
	defer unlock()

	if err := s.matchRepo.Delete(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	if err := s.chatRepo.DeleteByMatch(ctx, matchID); err != nil {
		return fmt.Errorf("failed to delete match chat: %w", err)
	}

	s.hub.BroadcastToMatch(matchID, lobby.Event{
		Type:    lobby.EventMatchDeleted,
		MatchID: matchID,
	})

	s.locksMu.Lock()
	delete(s.locks, matchID)
	s.locksMu.Unlock()

	return nil
}

// resolveNicknames подменяет ID игроков их никнеймами. Если пользователь
// не нашёлся, в списке остаётся исходный ID.
func (s *matchService) resolveNicknames(ctx context.Context, userIDs []string) []string {
	names := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			names = append(names, id)
			continue
		}
		names = append(names, user.Nickname)
	}
	return names
}
