package services

import (
	"context"
	"sync"
	"time"

	"github.com/evo-faceit/arena-server/models"
	"github.com/evo-faceit/arena-server/notify"
	"github.com/evo-faceit/arena-server/repositories"
)

// Фейки репозиториев держат состояние в памяти. GetByID возвращает копию
// записи: изменения видны остальным только после Update, как в базе.

type fakeMatchRepo struct {
	mu        sync.Mutex
	matches   map[string]*models.Match
	updateErr error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[string]*models.Match)}
}

func copyMatch(match *models.Match) *models.Match {
	clone := *match
	clone.CurrentPlayers = append([]string(nil), match.CurrentPlayers...)
	return &clone
}

func (r *fakeMatchRepo) Create(_ context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[match.ID] = copyMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(match), nil
}

func (r *fakeMatchRepo) List(_ context.Context) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*models.Match, 0, len(r.matches))
	for _, match := range r.matches {
		matches = append(matches, copyMatch(match))
	}
	return matches, nil
}

func (r *fakeMatchRepo) Update(_ context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.matches[match.ID] = copyMatch(match)
	return nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type fakeChatRepo struct {
	mu       sync.Mutex
	messages []*models.ChatMessage
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{}
}

func (r *fakeChatRepo) Create(_ context.Context, message *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *message
	r.messages = append(r.messages, &clone)
	return nil
}

func (r *fakeChatRepo) ListByMatch(_ context.Context, matchID string) ([]*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]*models.ChatMessage, 0)
	for _, message := range r.messages {
		if message.MatchID == matchID {
			clone := *message
			messages = append(messages, &clone)
		}
	}
	return messages, nil
}

func (r *fakeChatRepo) DeleteByMatch(_ context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	remaining := r.messages[:0]
	for _, message := range r.messages {
		if message.MatchID != matchID {
			remaining = append(remaining, message)
		}
	}
	r.messages = remaining
	return nil
}

type appliedOutcome struct {
	userID string
	update repositories.MatchOutcomeUpdate
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	applyErr map[string]error
	applied  []appliedOutcome
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		users:    make(map[string]*models.User),
		applyErr: make(map[string]error),
	}
	for _, user := range users {
		clone := *user
		repo.users[user.ID] = &clone
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.TelegramID != nil && *user.TelegramID == telegramID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*models.User, 0, len(r.users))
	for _, user := range r.users {
		clone := *user
		users = append(users, &clone)
	}
	return users, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) ApplyMatchOutcome(_ context.Context, userID string, update repositories.MatchOutcomeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.applyErr[userID]; err != nil {
		return err
	}
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}

	user.Rating = update.Rating
	user.KD = update.KD
	user.Kills += update.Kills
	user.Deaths += update.Deaths
	if update.Won {
		user.Wins++
	} else {
		user.Losses++
	}
	user.TotalMatches++

	r.applied = append(r.applied, appliedOutcome{userID: userID, update: update})
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.LastLogin = &at
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) appliedOutcomes() []appliedOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]appliedOutcome(nil), r.applied...)
}

// captureNotifier записывает опубликованные события. Уведомления уходят
// из фоновых горутин, поэтому доступ под мьютексом, а тесты ждут их
// через require.Eventually.
type captureNotifier struct {
	mu       sync.Mutex
	joined   []notify.PlayerJoinedEvent
	started  []notify.GameStartedEvent
	finished []notify.GameFinishedEvent
}

func (n *captureNotifier) NotifyPlayerJoined(event notify.PlayerJoinedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joined = append(n.joined, event)
}

func (n *captureNotifier) NotifyGameStarted(event notify.GameStartedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, event)
}

func (n *captureNotifier) NotifyGameFinished(event notify.GameFinishedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, event)
}

func (n *captureNotifier) joinedEvents() []notify.PlayerJoinedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.PlayerJoinedEvent(nil), n.joined...)
}

func (n *captureNotifier) startedEvents() []notify.GameStartedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.GameStartedEvent(nil), n.started...)
}

func (n *captureNotifier) finishedEvents() []notify.GameFinishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.GameFinishedEvent(nil), n.finished...)
}
