package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/evo-faceit/arena-server/models"
	"github.com/stretchr/testify/require"
)

func TestTopPlayersLimitedAndSorted(t *testing.T) {
	users := make([]*models.User, 0, 12)
	for i := 0; i < 12; i++ {
		users = append(users, testUser(
			fmt.Sprintf("u%d", i),
			fmt.Sprintf("Player%d", i),
			1000+i*10,
		))
	}
	service := NewStatsService(newFakeUserRepo(users...))

	top, err := service.TopPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, top, 10)
	require.Equal(t, 1110, top[0].Rating)
	for i := 1; i < len(top); i++ {
		require.GreaterOrEqual(t, top[i-1].Rating, top[i].Rating)
	}
}

func TestAllPlayersAggregates(t *testing.T) {
	u1 := testUser("u1", "Alpha", 1000)
	u1.Wins, u1.Losses, u1.TotalMatches, u1.KD = 3, 1, 4, 2.0
	u2 := testUser("u2", "Bravo", 1200)
	u2.Wins, u2.Losses, u2.TotalMatches, u2.KD = 1, 3, 4, 1.0

	service := NewStatsService(newFakeUserRepo(u1, u2))

	players, stats, err := service.AllPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 2)

	require.Equal(t, 2, stats.TotalPlayers)
	require.Equal(t, 8, stats.TotalMatches)
	require.Equal(t, 4, stats.TotalWins)
	require.Equal(t, 4, stats.TotalLosses)
	require.InDelta(t, 1100.0, stats.AverageRating, 1e-9)
	require.InDelta(t, 1.5, stats.AverageKD, 1e-9)
}

func TestAllPlayersEmpty(t *testing.T) {
	service := NewStatsService(newFakeUserRepo())

	players, stats, err := service.AllPlayers(context.Background())
	require.NoError(t, err)
	require.Empty(t, players)
	require.Equal(t, AggregateStats{}, stats)
}

func TestUserStatsNotFound(t *testing.T) {
	service := NewStatsService(newFakeUserRepo())

	_, err := service.UserStats(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}
