package postgres

import (
	"time"

	"github.com/rackline/matchplay/internal/domain/game"
)

type gameTableModel struct {
	ID           string `db:"id"`
	MatchID      string `db:"match_id"`
	GameNumber   int    `db:"game_number"`
	IsTiebreaker bool   `db:"is_tiebreaker"`

	HomePlayerID string `db:"home_player_id"`
	AwayPlayerID string `db:"away_player_id"`
	HomePosition int    `db:"home_position"`
	AwayPosition int    `db:"away_position"`
	HomeAction   string `db:"home_action"`
	AwayAction   string `db:"away_action"`

	WinnerPlayerID    *string    `db:"winner_player_id"`
	WinnerTeamID      *string    `db:"winner_team_id"`
	ConfirmedByHome   bool       `db:"confirmed_by_home"`
	ConfirmedByAway   bool       `db:"confirmed_by_away"`
	VacateRequestedBy *string    `db:"vacate_requested_by"`
	ConfirmedAt       *time.Time `db:"confirmed_at"`

	BreakAndRun bool `db:"break_and_run"`
	GoldenBreak bool `db:"golden_break"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func gameFromRow(row gameTableModel) game.Record {
	r := game.Record{
		ID:              row.ID,
		MatchID:         row.MatchID,
		GameNumber:      row.GameNumber,
		IsTiebreaker:    row.IsTiebreaker,
		HomePlayerID:    row.HomePlayerID,
		AwayPlayerID:    row.AwayPlayerID,
		HomePosition:    row.HomePosition,
		AwayPosition:    row.AwayPosition,
		HomeAction:      row.HomeAction,
		AwayAction:      row.AwayAction,
		ConfirmedByHome: row.ConfirmedByHome,
		ConfirmedByAway: row.ConfirmedByAway,
		ConfirmedAt:     row.ConfirmedAt,
		BreakAndRun:     row.BreakAndRun,
		GoldenBreak:     row.GoldenBreak,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	if row.WinnerPlayerID != nil {
		r.WinnerPlayerID = *row.WinnerPlayerID
	}
	if row.WinnerTeamID != nil {
		r.WinnerTeamID = *row.WinnerTeamID
	}
	if row.VacateRequestedBy != nil {
		r.VacateRequestedBy = *row.VacateRequestedBy
	}

	return r
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
