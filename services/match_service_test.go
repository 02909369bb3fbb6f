package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/evo-faceit/arena-server/lobby"
	"github.com/evo-faceit/arena-server/models"
	"github.com/stretchr/testify/require"
)

const notifyWait = 2 * time.Second

func newTestMatchService(users ...*models.User) (MatchService, *fakeMatchRepo, *fakeChatRepo, *fakeUserRepo, *captureNotifier) {
	matchRepo := newFakeMatchRepo()
	chatRepo := newFakeChatRepo()
	userRepo := newFakeUserRepo(users...)
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewMatchService(
		matchRepo,
		chatRepo,
		userRepo,
		notifier,
		lobby.NewHub(),
		NewScreenshotStore(nil, logger),
		logger,
	)
	return service, matchRepo, chatRepo, userRepo, notifier
}

func testUser(id, nickname string, rating int) *models.User {
	return &models.User{
		ID:       id,
		Email:    id + "@example.com",
		Nickname: nickname,
		Role:     models.RolePlayer,
		Rating:   rating,
		Level:    1,
	}
}

func TestCreateMatchValidation(t *testing.T) {
	service, _, _, _, _ := newTestMatchService()
	ctx := context.Background()

	_, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "   ", TeamSize: 3})
	require.ErrorIs(t, err, ErrMatchNameRequired)

	_, err = service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 1})
	require.ErrorIs(t, err, ErrInvalidTeamSize)

	_, err = service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 6})
	require.ErrorIs(t, err, ErrInvalidTeamSize)
}

func TestCreateMatchDefaults(t *testing.T) {
	service, matchRepo, _, _, _ := newTestMatchService()
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "  Arena Cup  ", TeamSize: 5})
	require.NoError(t, err)

	require.Equal(t, "Arena Cup", match.Name)
	require.Equal(t, 5, match.TeamSize)
	require.Equal(t, 10, match.MaxPlayers)
	require.Equal(t, models.MatchStatusWaiting, match.Status)
	require.Equal(t, "admin-1", match.CreatedBy)
	require.Empty(t, match.CurrentPlayers)
	require.Nil(t, match.StartedAt)

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.Equal(t, match.ID, stored.ID)
}

func TestJoinUnknownUserAndMatch(t *testing.T) {
	service, _, _, _, _ := newTestMatchService(testUser("u1", "Alpha", 1000))
	ctx := context.Background()

	_, err := service.Join(ctx, "missing", "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = service.Join(ctx, "missing", "u1")
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestJoinIsIdempotent(t *testing.T) {
	service, _, _, _, notifier := newTestMatchService(
		testUser("u1", "Alpha", 1000),
	)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)

	first, err := service.Join(ctx, match.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, first.CurrentPlayers)

	second, err := service.Join(ctx, match.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, second.CurrentPlayers)

	// Повторный Join ничего не публикует.
	require.Eventually(t, func() bool {
		return len(notifier.joinedEvents()) == 1
	}, notifyWait, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, notifier.joinedEvents(), 1)
}

func TestJoinFillsMatchAndStartsGame(t *testing.T) {
	service, matchRepo, _, _, notifier := newTestMatchService(
		testUser("u1", "Alpha", 1000),
		testUser("u2", "Bravo", 1000),
		testUser("u3", "Charlie", 1000),
		testUser("u4", "Delta", 1000),
		testUser("u5", "Echo", 1000),
	)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)

	for _, userID := range []string{"u1", "u2", "u3"} {
		_, err = service.Join(ctx, match.ID, userID)
		require.NoError(t, err)
	}

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusWaiting, stored.Status)

	full, err := service.Join(ctx, match.ID, "u4")
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusInProgress, full.Status)
	require.NotNil(t, full.StartedAt)
	require.Len(t, full.CurrentPlayers, 4)

	_, err = service.Join(ctx, match.ID, "u5")
	require.ErrorIs(t, err, ErrMatchFull)

	require.Eventually(t, func() bool {
		return len(notifier.startedEvents()) == 1
	}, notifyWait, 10*time.Millisecond)

	started := notifier.startedEvents()[0]
	require.Equal(t, "Arena Cup", started.MatchName)
	require.Equal(t, 2, started.TeamSize)
	require.Equal(t, []string{"Alpha", "Bravo", "Charlie", "Delta"}, started.Players)

	joined := notifier.joinedEvents()
	require.Len(t, joined, 4)
	last := joined[len(joined)-1]
	require.Equal(t, 4, last.CurrentPlayers)
	require.Equal(t, 4, last.MaxPlayers)
}

func TestLeaveRemovesPlayer(t *testing.T) {
	service, matchRepo, _, _, _ := newTestMatchService(
		testUser("u1", "Alpha", 1000),
		testUser("u2", "Bravo", 1000),
	)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)

	_, err = service.Join(ctx, match.ID, "u1")
	require.NoError(t, err)
	_, err = service.Join(ctx, match.ID, "u2")
	require.NoError(t, err)

	left, err := service.Leave(ctx, match.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, left.CurrentPlayers)

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, stored.CurrentPlayers)
}

func TestLeaveIsNoopForNonParticipant(t *testing.T) {
	service, _, _, _, _ := newTestMatchService(testUser("u1", "Alpha", 1000))
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)

	_, err = service.Join(ctx, match.ID, "u1")
	require.NoError(t, err)

	result, err := service.Leave(ctx, match.ID, "stranger")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, result.CurrentPlayers)
}

func TestUploadResultsRecalculatesStats(t *testing.T) {
	service, matchRepo, _, userRepo, notifier := newTestMatchService(
		testUser("u1", "Alpha", 1000),
		testUser("u2", "Bravo", 1000),
		testUser("u3", "Charlie", 10),
		testUser("u4", "Delta", 1000),
	)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)
	for _, userID := range []string{"u1", "u2", "u3", "u4"} {
		_, err = service.Join(ctx, match.ID, userID)
		require.NoError(t, err)
	}

	completed, outcomes, err := service.UploadResults(ctx, match.ID, "admin-1", UploadResultsInput{
		TeamAScore: 16,
		TeamBScore: 10,
		TeamA:      []string{"u1", "u2"},
		TeamB:      []string{"u3", "u4"},
		PlayerStats: []models.PlayerStats{
			{UserID: "u1", Kills: 10, Deaths: 4},
			{UserID: "u2", Kills: 5, Deaths: 0},
			{UserID: "u3", Kills: 1, Deaths: 4},
			{UserID: "u4", Kills: 7, Deaths: 7},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.Results)
	require.Equal(t, 16, completed.Results.TeamAScore)

	require.Len(t, outcomes, 4)
	byUser := make(map[string]PlayerOutcome, len(outcomes))
	for _, outcome := range outcomes {
		require.Empty(t, outcome.Error)
		byUser[outcome.UserID] = outcome
	}

	require.True(t, byUser["u1"].Won)
	require.Equal(t, 30, byUser["u1"].RatingDelta)
	require.Equal(t, 1030, byUser["u1"].NewRating)
	require.InDelta(t, 2.5, byUser["u1"].KD, 1e-9)

	// Без смертей KD равен числу убийств.
	require.InDelta(t, 5.0, byUser["u2"].KD, 1e-9)

	// Проигравший с рейтингом 10 упирается в ноль.
	require.False(t, byUser["u3"].Won)
	require.Equal(t, -20, byUser["u3"].RatingDelta)
	require.Equal(t, 0, byUser["u3"].NewRating)
	require.InDelta(t, 0.25, byUser["u3"].KD, 1e-9)

	require.InDelta(t, 1.0, byUser["u4"].KD, 1e-9)

	u3, err := userRepo.GetByID(ctx, "u3")
	require.NoError(t, err)
	require.Equal(t, 0, u3.Rating)
	require.Equal(t, 1, u3.Losses)
	require.Equal(t, 1, u3.Kills)
	require.Equal(t, 4, u3.Deaths)
	require.Equal(t, 1, u3.TotalMatches)

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCompleted, stored.Status)

	require.Eventually(t, func() bool {
		return len(notifier.finishedEvents()) == 1
	}, notifyWait, 10*time.Millisecond)

	finished := notifier.finishedEvents()[0]
	require.Equal(t, []string{"Alpha", "Bravo"}, finished.TeamA)
	require.Equal(t, []string{"Charlie", "Delta"}, finished.TeamB)
	require.Equal(t, 16, finished.TeamAScore)
	require.Equal(t, 10, finished.TeamBScore)
}

func TestUploadResultsContinuesOnPlayerFailure(t *testing.T) {
	service, _, _, userRepo, _ := newTestMatchService(
		testUser("u1", "Alpha", 1000),
		testUser("u2", "Bravo", 1000),
		testUser("u3", "Charlie", 1000),
		testUser("u4", "Delta", 1000),
	)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)
	for _, userID := range []string{"u1", "u2", "u3", "u4"} {
		_, err = service.Join(ctx, match.ID, userID)
		require.NoError(t, err)
	}

	userRepo.applyErr["u2"] = errors.New("connection reset")

	completed, outcomes, err := service.UploadResults(ctx, match.ID, "admin-1", UploadResultsInput{
		TeamAScore: 13,
		TeamBScore: 16,
		TeamA:      []string{"u1", "u2"},
		TeamB:      []string{"u3", "u4"},
	})
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCompleted, completed.Status)
	require.Len(t, outcomes, 4)

	failures := 0
	for _, outcome := range outcomes {
		if outcome.UserID == "u2" {
			require.Contains(t, outcome.Error, "connection reset")
			failures++
			continue
		}
		require.Empty(t, outcome.Error)
	}
	require.Equal(t, 1, failures)

	// Остальные игроки обновлены несмотря на сбой по одному.
	require.Len(t, userRepo.appliedOutcomes(), 3)
}

func TestUploadResultsOverwritesPreviousUpload(t *testing.T) {
	service, matchRepo, _, _, _ := newTestMatchService(
		testUser("u1", "Alpha", 1000),
		testUser("u2", "Bravo", 1000),
		testUser("u3", "Charlie", 1000),
		testUser("u4", "Delta", 1000),
	)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)
	for _, userID := range []string{"u1", "u2", "u3", "u4"} {
		_, err = service.Join(ctx, match.ID, userID)
		require.NoError(t, err)
	}

	input := UploadResultsInput{
		TeamAScore: 16,
		TeamBScore: 2,
		TeamA:      []string{"u1", "u2"},
		TeamB:      []string{"u3", "u4"},
	}
	_, _, err = service.UploadResults(ctx, match.ID, "admin-1", input)
	require.NoError(t, err)

	input.TeamAScore, input.TeamBScore = 14, 16
	_, _, err = service.UploadResults(ctx, match.ID, "admin-1", input)
	require.NoError(t, err)

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.Equal(t, 14, stored.Results.TeamAScore)
	require.Equal(t, 16, stored.Results.TeamBScore)
}

func TestDeleteMatchCascadesChat(t *testing.T) {
	service, _, chatRepo, _, _ := newTestMatchService(testUser("u1", "Alpha", 1000))
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)
	_, err = service.Join(ctx, match.ID, "u1")
	require.NoError(t, err)

	require.NoError(t, chatRepo.Create(ctx, &models.ChatMessage{
		ID: "m1", MatchID: match.ID, UserID: "u1", UserName: "Alpha", Message: "go go go",
	}))
	require.NoError(t, chatRepo.Create(ctx, &models.ChatMessage{
		ID: "m2", MatchID: "other", UserID: "u1", UserName: "Alpha", Message: "hi",
	}))

	require.NoError(t, service.Delete(ctx, match.ID))

	_, err = service.GetByID(ctx, match.ID)
	require.ErrorIs(t, err, ErrMatchNotFound)

	messages, err := chatRepo.ListByMatch(ctx, match.ID)
	require.NoError(t, err)
	require.Empty(t, messages)

	other, err := chatRepo.ListByMatch(ctx, "other")
	require.NoError(t, err)
	require.Len(t, other, 1)

	require.ErrorIs(t, service.Delete(ctx, match.ID), ErrMatchNotFound)
}

func TestRandomJoinLeaveSequences(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		rng := rand.New(rand.NewSource(seed))
		teamSize := minTeamSize + rng.Intn(maxTeamSize-minTeamSize+1)
		maxPlayers := teamSize * 2

		users := make([]*models.User, 0, maxPlayers+4)
		for i := 0; i < maxPlayers+4; i++ {
			users = append(users, testUser(fmt.Sprintf("u%d", i), fmt.Sprintf("Player%d", i), 1000))
		}
		service, matchRepo, _, _, _ := newTestMatchService(users...)
		ctx := context.Background()

		match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: teamSize})
		require.NoError(t, err)

		everFull := false
		for op := 0; op < 200; op++ {
			userID := users[rng.Intn(len(users))].ID

			if rng.Intn(2) == 0 {
				_, err := service.Join(ctx, match.ID, userID)
				if err != nil {
					require.ErrorIs(t, err, ErrMatchFull, "seed %d op %d", seed, op)
				}
			} else {
				_, err := service.Leave(ctx, match.ID, userID)
				require.NoError(t, err, "seed %d op %d", seed, op)
			}

			stored, err := matchRepo.GetByID(ctx, match.ID)
			require.NoError(t, err)

			require.LessOrEqual(t, len(stored.CurrentPlayers), maxPlayers, "seed %d op %d", seed, op)
			seen := make(map[string]bool, len(stored.CurrentPlayers))
			for _, id := range stored.CurrentPlayers {
				require.False(t, seen[id], "duplicate roster entry %s, seed %d op %d", id, seed, op)
				seen[id] = true
			}

			if len(stored.CurrentPlayers) == maxPlayers {
				everFull = true
			}
			// Дойдя до in_progress, матч обратно в waiting не возвращается.
			if everFull {
				require.Equal(t, models.MatchStatusInProgress, stored.Status, "seed %d op %d", seed, op)
				require.NotNil(t, stored.StartedAt)
			} else {
				require.Equal(t, models.MatchStatusWaiting, stored.Status, "seed %d op %d", seed, op)
			}
		}
	}
}

func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	users := []*models.User{
		testUser("u1", "Alpha", 1000),
		testUser("u2", "Bravo", 1000),
		testUser("u3", "Charlie", 1000),
		testUser("u4", "Delta", 1000),
		testUser("u5", "Echo", 1000),
		testUser("u6", "Foxtrot", 1000),
	}
	service, matchRepo, _, _, _ := newTestMatchService(users...)
	ctx := context.Background()

	match, err := service.Create(ctx, "admin-1", CreateMatchInput{Name: "Arena Cup", TeamSize: 2})
	require.NoError(t, err)

	done := make(chan error, len(users))
	for _, user := range users {
		go func(userID string) {
			_, err := service.Join(ctx, match.ID, userID)
			done <- err
		}(user.ID)
	}

	full := 0
	for range users {
		if err := <-done; err != nil {
			require.ErrorIs(t, err, ErrMatchFull)
			full++
		}
	}
	require.Equal(t, 2, full)

	stored, err := matchRepo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, stored.CurrentPlayers, 4)
	require.Equal(t, models.MatchStatusInProgress, stored.Status)
}
