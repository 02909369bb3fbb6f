package services

import (
	"context"
	"sort"

	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/repositories"
)

const topPlayersLimit = 10

// AggregateStats — сводная статистика по всем игрокам.
type AggregateStats struct {
	TotalPlayers  int     `json:"total_players"`
	TotalMatches  int     `json:"total_matches"`
	TotalWins     int     `json:"total_wins"`
	TotalLosses   int     `json:"total_losses"`
	AverageRating float64 `json:"average_rating"`
	AverageKD     float64 `json:"average_kd"`
}

type StatsService interface {
	UserStats(ctx context.Context, userID string) (*models.User, error)
	TopPlayers(ctx context.Context) ([]*models.User, error)
	AllPlayers(ctx context.Context) ([]*models.User, AggregateStats, error)
}

type statsService struct {
	userRepo repositories.UserRepository
}

func NewStatsService(userRepo repositories.UserRepository) StatsService {
	return &statsService{
		userRepo: userRepo,
	}
}

func (s *statsService) UserStats(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// TopPlayers — первые 10 игроков по рейтингу.
func (s *statsService) TopPlayers(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Rating > users[j].Rating
	})
	if len(users) > topPlayersLimit {
		users = users[:topPlayersLimit]
	}
	return users, nil
}

func (s *statsService) AllPlayers(ctx context.Context) ([]*models.User, AggregateStats, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, AggregateStats{}, err
	}

	stats := AggregateStats{TotalPlayers: len(users)}
	for _, u := range users {
		stats.TotalMatches += u.TotalMatches
		stats.TotalWins += u.Wins
		stats.TotalLosses += u.Losses
		stats.AverageRating += float64(u.Rating)
		stats.AverageKD += u.KD
	}
	if len(users) > 0 {
		stats.AverageRating /= float64(len(users))
		stats.AverageKD /= float64(len(users))
	}
	return users, stats, nil
}
