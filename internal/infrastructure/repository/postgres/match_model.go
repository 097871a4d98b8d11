package postgres

import (
	"time"

	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
)

type matchTableModel struct {
	ID              string `db:"id"`
	SeasonID        string `db:"season_id"`
	LeagueID        string `db:"league_id"`
	HomeTeamID      string `db:"home_team_id"`
	AwayTeamID      string `db:"away_team_id"`
	Format          string `db:"format"`
	GameType        string `db:"game_type"`
	HandicapVariant string `db:"handicap_variant"`
	GoldenBreakWins bool   `db:"golden_break_wins"`
	Status          string `db:"status"`

	HomeGamesToWin  *int `db:"home_games_to_win"`
	HomeGamesToTie  *int `db:"home_games_to_tie"`
	HomeGamesToLose *int `db:"home_games_to_lose"`
	AwayGamesToWin  *int `db:"away_games_to_win"`
	AwayGamesToTie  *int `db:"away_games_to_tie"`
	AwayGamesToLose *int `db:"away_games_to_lose"`

	HomeVerified bool       `db:"home_verified"`
	AwayVerified bool       `db:"away_verified"`
	WinnerTeamID *string    `db:"winner_team_id"`
	CompletedAt  *time.Time `db:"completed_at"`
	ScheduledAt  time.Time  `db:"scheduled_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func matchFromRow(row matchTableModel) match.Match {
	m := match.Match{
		ID:         row.ID,
		SeasonID:   row.SeasonID,
		LeagueID:   row.LeagueID,
		HomeTeamID: row.HomeTeamID,
		AwayTeamID: row.AwayTeamID,
		Settings: match.Settings{
			Format:          handicap.Format(row.Format),
			GameType:        row.GameType,
			HandicapVariant: row.HandicapVariant,
			GoldenBreakWins: row.GoldenBreakWins,
		},
		Status:       row.Status,
		HomeVerified: row.HomeVerified,
		AwayVerified: row.AwayVerified,
		CompletedAt:  row.CompletedAt,
		ScheduledAt:  row.ScheduledAt,
		UpdatedAt:    row.UpdatedAt,
	}

	m.HomeThresholds = thresholdsFromColumns(row.HomeGamesToWin, row.HomeGamesToTie, row.HomeGamesToLose)
	m.AwayThresholds = thresholdsFromColumns(row.AwayGamesToWin, row.AwayGamesToTie, row.AwayGamesToLose)
	if row.WinnerTeamID != nil {
		m.WinnerTeamID = *row.WinnerTeamID
	}

	return m
}

func thresholdsFromColumns(win, tie, lose *int) *handicap.Thresholds {
	if win == nil || lose == nil {
		return nil
	}

	out := &handicap.Thresholds{GamesToWin: *win, GamesToLose: *lose}
	if tie != nil {
		t := *tie
		out.GamesToTie = &t
	}

	return out
}

func thresholdColumns(t *handicap.Thresholds) (win, tie, lose *int) {
	if t == nil {
		return nil, nil, nil
	}

	w, l := t.GamesToWin, t.GamesToLose
	win, lose = &w, &l
	if t.GamesToTie != nil {
		v := *t.GamesToTie
		tie = &v
	}

	return win, tie, lose
}
