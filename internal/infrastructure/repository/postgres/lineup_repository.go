package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rackline/matchplay/internal/domain/lineup"
)

type LineupRepository struct {
	db *sqlx.DB
}

func NewLineupRepository(db *sqlx.DB) *LineupRepository {
	return &LineupRepository{db: db}
}

const lineupSelectColumns = `
id, match_id, team_id, player_ids, handicaps, team_modifier,
locked, locked_at, swap_position, swap_player_id, swap_handicap,
tiebreaker_order, tiebreaker_locked, updated_at`

func (r *LineupRepository) GetByMatchAndTeam(ctx context.Context, matchID, teamID string) (lineup.Lineup, bool, error) {
	query := `SELECT` + lineupSelectColumns + `
FROM match_lineups
WHERE match_id = $1 AND team_id = $2`

	var row lineupTableModel
	if err := r.db.GetContext(ctx, &row, query, matchID, teamID); err != nil {
		if isNotFound(err) {
			return lineup.Lineup{}, false, nil
		}
		return lineup.Lineup{}, false, fmt.Errorf("get lineup: %w", err)
	}

	return lineupFromRow(row), true, nil
}

func (r *LineupRepository) ListByMatch(ctx context.Context, matchID string) ([]lineup.Lineup, error) {
	query := `SELECT` + lineupSelectColumns + `
FROM match_lineups
WHERE match_id = $1
ORDER BY team_id`

	var rows []lineupTableModel
	if err := r.db.SelectContext(ctx, &rows, query, matchID); err != nil {
		return nil, fmt.Errorf("list lineups: %w", err)
	}

	out := make([]lineup.Lineup, 0, len(rows))
	for _, row := range rows {
		out = append(out, lineupFromRow(row))
	}

	return out, nil
}

func (r *LineupRepository) Upsert(ctx context.Context, item lineup.Lineup) error {
	query := `INSERT INTO match_lineups (
    id, match_id, team_id, player_ids, handicaps, team_modifier,
    locked, locked_at, swap_position, swap_player_id, swap_handicap,
    tiebreaker_order, tiebreaker_locked, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (match_id, team_id)
DO UPDATE SET
    player_ids = EXCLUDED.player_ids,
    handicaps = EXCLUDED.handicaps,
    team_modifier = EXCLUDED.team_modifier,
    locked = EXCLUDED.locked,
    locked_at = EXCLUDED.locked_at,
    swap_position = EXCLUDED.swap_position,
    swap_player_id = EXCLUDED.swap_player_id,
    swap_handicap = EXCLUDED.swap_handicap,
    tiebreaker_order = EXCLUDED.tiebreaker_order,
    tiebreaker_locked = EXCLUDED.tiebreaker_locked,
    updated_at = EXCLUDED.updated_at`

	players, handicaps := lineupColumns(item)

	var swapPlayerID *string
	if item.SwapPlayerID != "" {
		swapPlayerID = &item.SwapPlayerID
	}

	if _, err := r.db.ExecContext(ctx, query,
		item.ID, item.MatchID, item.TeamID,
		players, handicaps, item.TeamModifier,
		item.Locked, item.LockedAt,
		item.SwapPosition, swapPlayerID, item.SwapHandicap,
		pq.StringArray(item.TiebreakerOrder), item.TiebreakerLocked,
		item.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert lineup: %w", err)
	}

	return nil
}
