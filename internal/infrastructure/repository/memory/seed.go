package memory

import (
	"time"

	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
)

const (
	SeasonIDFall2026   = "fall-2026"
	LeagueIDRiverCity  = "river-city-8ball"
	TeamIDCornerPocket = "corner-pocket"
	TeamIDSideRail     = "side-rail"
	TeamIDBreakRoom    = "break-room"
	TeamIDChalkedUp    = "chalked-up"

	MatchIDWeekOneThrees = "w1-corner-vs-side"
	MatchIDWeekOneFives  = "w1-break-vs-chalk"
)

// SeedMatches returns scheduled matches for local development without a
// database. The scheduling system owns match creation in production.
func SeedMatches() []match.Match {
	scheduledAt := time.Date(2026, time.September, 3, 19, 0, 0, 0, time.UTC)

	return []match.Match{
		{
			ID:         MatchIDWeekOneThrees,
			SeasonID:   SeasonIDFall2026,
			LeagueID:   LeagueIDRiverCity,
			HomeTeamID: TeamIDCornerPocket,
			AwayTeamID: TeamIDSideRail,
			Settings: match.Settings{
				Format:          handicap.FormatThreePlayer,
				GameType:        match.GameTypeEightBall,
				HandicapVariant: "standard",
				GoldenBreakWins: true,
			},
			Status:      match.StatusScheduled,
			ScheduledAt: scheduledAt,
			UpdatedAt:   scheduledAt,
		},
		{
			ID:         MatchIDWeekOneFives,
			SeasonID:   SeasonIDFall2026,
			LeagueID:   LeagueIDRiverCity,
			HomeTeamID: TeamIDBreakRoom,
			AwayTeamID: TeamIDChalkedUp,
			Settings: match.Settings{
				Format:          handicap.FormatFivePlayer,
				GameType:        match.GameTypeEightBall,
				HandicapVariant: "standard",
				GoldenBreakWins: false,
			},
			Status:      match.StatusScheduled,
			ScheduledAt: scheduledAt.Add(2 * time.Hour),
			UpdatedAt:   scheduledAt,
		},
	}
}
