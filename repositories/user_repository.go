package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evo-faceit/arena-server/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email conflict")
	ErrUserNicknameConflict = errors.New("user nickname conflict")
)

// MatchOutcomeUpdate — атомарное обновление пользовательской статистики
// после завершения матча. Rating и KD записываются как абсолютные значения
// (новый рейтинг считает сервис), kills/deaths/wins/losses — инкременты.
type MatchOutcomeUpdate struct {
	Rating int
	KD     float64
	Kills  int
	Deaths int
	Won    bool
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ApplyMatchOutcome(ctx context.Context, userID string, update MatchOutcomeUpdate) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, email, nickname, password_hash, avatar, banner, telegram_id, role, rating, kills, deaths, kd, level, wins, losses, total_matches, created_at, last_login`

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, nickname, password_hash, avatar, banner, telegram_id, role,
			rating, kills, deaths, kd, level, wins, losses, total_matches, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Nickname,
		user.PasswordHash,
		user.Avatar,
		user.Banner,
		user.TelegramID,
		user.Role,
		user.Rating,
		user.Kills,
		user.Deaths,
		user.KD,
		user.Level,
		user.Wins,
		user.Losses,
		user.TotalMatches,
		user.CreatedAt,
		user.LastLogin,
	)
	if err != nil {
		return mapUserConstraintError(err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

func (r *postgresUserRepository) GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	return r.scanUser(ctx, query, telegramID)
}

func (r *postgresUserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY rating DESC, nickname ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, scanErr := scanUserRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			email = $1,
			nickname = $2,
			password_hash = $3,
			avatar = $4,
			banner = $5,
			telegram_id = $6,
			role = $7,
			last_login = $8
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Nickname,
		user.PasswordHash,
		user.Avatar,
		user.Banner,
		user.TelegramID,
		user.Role,
		user.LastLogin,
		user.ID,
	)
	if err != nil {
		return mapUserConstraintError(err)
	}
	return requireAffectedRows(result, ErrUserNotFound)
}

// ApplyMatchOutcome выполняет одно UPDATE-выражение на пользователя, чтобы
// обновление статистики было атомарным на уровне записи.
func (r *postgresUserRepository) ApplyMatchOutcome(ctx context.Context, userID string, update MatchOutcomeUpdate) error {
	wins, losses := 0, 1
	if update.Won {
		wins, losses = 1, 0
	}

	query := `
		UPDATE users SET
			rating = $1,
			kd = $2,
			kills = kills + $3,
			deaths = deaths + $4,
			wins = wins + $5,
			losses = losses + $6,
			total_matches = total_matches + 1
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		update.Rating,
		update.KD,
		update.Kills,
		update.Deaths,
		wins,
		losses,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to apply match outcome: %w", err)
	}
	return requireAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return requireAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) scanUser(ctx context.Context, query string, arg any) (*models.User, error) {
	return scanUserRow(r.db.QueryRowContext(ctx, query, arg))
}

func scanUserRow(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Nickname,
		&user.PasswordHash,
		&user.Avatar,
		&user.Banner,
		&user.TelegramID,
		&user.Role,
		&user.Rating,
		&user.Kills,
		&user.Deaths,
		&user.KD,
		&user.Level,
		&user.Wins,
		&user.Losses,
		&user.TotalMatches,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func mapUserConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_email_key":
			return ErrUserEmailConflict
		case "users_nickname_key":
			return ErrUserNicknameConflict
		}
	}
	return err
}
