package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rackline/matchplay/internal/domain/match"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchSelectColumns = `
id, season_id, league_id, home_team_id, away_team_id,
format, game_type, handicap_variant, golden_break_wins, status,
home_games_to_win, home_games_to_tie, home_games_to_lose,
away_games_to_win, away_games_to_tie, away_games_to_lose,
home_verified, away_verified, winner_team_id, completed_at,
scheduled_at, updated_at`

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	query := `SELECT` + matchSelectColumns + `
FROM matches
WHERE id = $1`

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, matchID); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match: %w", err)
	}

	return matchFromRow(row), true, nil
}

// Update writes only the engine-owned columns. Identity, teams and match
// settings belong to the scheduling system and are never touched here.
func (r *MatchRepository) Update(ctx context.Context, m match.Match) error {
	query := `UPDATE matches SET
    status = $2,
    home_games_to_win = $3, home_games_to_tie = $4, home_games_to_lose = $5,
    away_games_to_win = $6, away_games_to_tie = $7, away_games_to_lose = $8,
    home_verified = $9, away_verified = $10,
    winner_team_id = $11, completed_at = $12,
    updated_at = $13
WHERE id = $1`

	homeWin, homeTie, homeLose := thresholdColumns(m.HomeThresholds)
	awayWin, awayTie, awayLose := thresholdColumns(m.AwayThresholds)

	var winner *string
	if m.WinnerTeamID != "" {
		winner = &m.WinnerTeamID
	}

	result, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Status,
		homeWin, homeTie, homeLose,
		awayWin, awayTie, awayLose,
		m.HomeVerified, m.AwayVerified,
		winner, m.CompletedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("match %s does not exist", m.ID)
	}

	return nil
}
