package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rackline/matchplay/internal/domain/game"
)

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

const gameSelectColumns = `
id, match_id, game_number, is_tiebreaker,
home_player_id, away_player_id, home_position, away_position,
home_action, away_action,
winner_player_id, winner_team_id, confirmed_by_home, confirmed_by_away,
vacate_requested_by, confirmed_at, break_and_run, golden_break,
created_at, updated_at`

// CreateAll inserts a full ledger in one transaction. The unique index on
// (match_id, game_number, is_tiebreaker) turns a lost initialization race
// into game.ErrDuplicateLedger.
func (r *GameRepository) CreateAll(ctx context.Context, records []game.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create games tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO match_games (
    id, match_id, game_number, is_tiebreaker,
    home_player_id, away_player_id, home_position, away_position,
    home_action, away_action, break_and_run, golden_break,
    created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, query,
			rec.ID, rec.MatchID, rec.GameNumber, rec.IsTiebreaker,
			rec.HomePlayerID, rec.AwayPlayerID, rec.HomePosition, rec.AwayPosition,
			rec.HomeAction, rec.AwayAction, rec.BreakAndRun, rec.GoldenBreak,
			rec.CreatedAt, rec.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return game.ErrDuplicateLedger
			}
			return fmt.Errorf("insert game %d: %w", rec.GameNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create games tx: %w", err)
	}

	return nil
}

func (r *GameRepository) ListByMatch(ctx context.Context, matchID string) ([]game.Record, error) {
	query := `SELECT` + gameSelectColumns + `
FROM match_games
WHERE match_id = $1
ORDER BY is_tiebreaker, game_number`

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, matchID); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	out := make([]game.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, gameFromRow(row))
	}

	return out, nil
}

func (r *GameRepository) GetByNumber(ctx context.Context, matchID string, gameNumber int, tiebreaker bool) (game.Record, bool, error) {
	query := `SELECT` + gameSelectColumns + `
FROM match_games
WHERE match_id = $1 AND game_number = $2 AND is_tiebreaker = $3`

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, matchID, gameNumber, tiebreaker); err != nil {
		if isNotFound(err) {
			return game.Record{}, false, nil
		}
		return game.Record{}, false, fmt.Errorf("get game: %w", err)
	}

	return gameFromRow(row), true, nil
}

func (r *GameRepository) Update(ctx context.Context, rec game.Record) error {
	query := `UPDATE match_games SET
    home_player_id = $2, away_player_id = $3,
    winner_player_id = $4, winner_team_id = $5,
    confirmed_by_home = $6, confirmed_by_away = $7,
    vacate_requested_by = $8, confirmed_at = $9,
    break_and_run = $10, golden_break = $11,
    updated_at = $12
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.HomePlayerID, rec.AwayPlayerID,
		nullable(rec.WinnerPlayerID), nullable(rec.WinnerTeamID),
		rec.ConfirmedByHome, rec.ConfirmedByAway,
		nullable(rec.VacateRequestedBy), rec.ConfirmedAt,
		rec.BreakAndRun, rec.GoldenBreak,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("game %s does not exist", rec.ID)
	}

	return nil
}
