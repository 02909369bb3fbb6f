package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evo-faceit/arena-server/models"
	"github.com/lib/pq"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, name, team_size, max_players, players, status, created_by, created_at, started_at, completed_at, results`

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (id, name, team_size, max_players, players, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		match.ID,
		match.Name,
		match.TeamSize,
		match.MaxPlayers,
		pq.Array(match.CurrentPlayers),
		match.Status,
		match.CreatedBy,
		match.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}

// Update перезаписывает изменяемые поля матча: состав, статус, отметки
// времени и результаты. Имя и размер команды после создания не меняются.
func (r *postgresMatchRepository) Update(ctx context.Context, match *models.Match) error {
	resultsJSON, err := marshalResults(match.Results)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches SET
			players = $1,
			status = $2,
			started_at = $3,
			completed_at = $4,
			results = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		pq.Array(match.CurrentPlayers),
		match.Status,
		match.StartedAt,
		match.CompletedAt,
		resultsJSON,
		match.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return requireAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return requireAffectedRows(result, ErrMatchNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var match models.Match
	var resultsJSON []byte

	err := row.Scan(
		&match.ID,
		&match.Name,
		&match.TeamSize,
		&match.MaxPlayers,
		pq.Array(&match.CurrentPlayers),
		&match.Status,
		&match.CreatedBy,
		&match.CreatedAt,
		&match.StartedAt,
		&match.CompletedAt,
		&resultsJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}

	if match.CurrentPlayers == nil {
		match.CurrentPlayers = []string{}
	}
	if len(resultsJSON) > 0 {
		var results models.MatchResults
		if err := json.Unmarshal(resultsJSON, &results); err != nil {
			return nil, fmt.Errorf("failed to decode match results: %w", err)
		}
		match.Results = &results
	}
	return &match, nil
}

func marshalResults(results *models.MatchResults) ([]byte, error) {
	if results == nil {
		return nil, nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match results: %w", err)
	}
	return data, nil
}
