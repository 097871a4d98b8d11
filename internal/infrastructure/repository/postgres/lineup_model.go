package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/rackline/matchplay/internal/domain/lineup"
)

// Slots are stored as parallel arrays ordered by position; the row and the
// domain slice always agree on length.
type lineupTableModel struct {
	ID           string        `db:"id"`
	MatchID      string        `db:"match_id"`
	TeamID       string        `db:"team_id"`
	PlayerIDs    pq.StringArray `db:"player_ids"`
	Handicaps    pq.Int64Array `db:"handicaps"`
	TeamModifier int           `db:"team_modifier"`
	Locked       bool          `db:"locked"`
	LockedAt     *time.Time    `db:"locked_at"`

	SwapPosition *int    `db:"swap_position"`
	SwapPlayerID *string `db:"swap_player_id"`
	SwapHandicap int     `db:"swap_handicap"`

	TiebreakerOrder  pq.StringArray `db:"tiebreaker_order"`
	TiebreakerLocked bool           `db:"tiebreaker_locked"`

	UpdatedAt time.Time `db:"updated_at"`
}

func lineupFromRow(row lineupTableModel) lineup.Lineup {
	slots := make([]lineup.Slot, 0, len(row.PlayerIDs))
	for i, playerID := range row.PlayerIDs {
		handicap := 0
		if i < len(row.Handicaps) {
			handicap = int(row.Handicaps[i])
		}
		slots = append(slots, lineup.Slot{Position: i + 1, PlayerID: playerID, Handicap: handicap})
	}

	item := lineup.Lineup{
		ID:               row.ID,
		MatchID:          row.MatchID,
		TeamID:           row.TeamID,
		Slots:            slots,
		TeamModifier:     row.TeamModifier,
		Locked:           row.Locked,
		LockedAt:         row.LockedAt,
		SwapPosition:     row.SwapPosition,
		SwapHandicap:     row.SwapHandicap,
		TiebreakerOrder:  append([]string(nil), row.TiebreakerOrder...),
		TiebreakerLocked: row.TiebreakerLocked,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.SwapPlayerID != nil {
		item.SwapPlayerID = *row.SwapPlayerID
	}

	return item
}

func lineupColumns(item lineup.Lineup) (players pq.StringArray, handicaps pq.Int64Array) {
	players = make(pq.StringArray, len(item.Slots))
	handicaps = make(pq.Int64Array, len(item.Slots))
	for _, slot := range item.Slots {
		players[slot.Position-1] = slot.PlayerID
		handicaps[slot.Position-1] = int64(slot.Handicap)
	}

	return players, handicaps
}
