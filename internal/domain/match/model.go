package match

import (
	"time"

	"github.com/rackline/matchplay/internal/domain/handicap"
)

const (
	StatusScheduled            = "scheduled"
	StatusInProgress           = "in_progress"
	StatusAwaitingVerification = "awaiting_verification"
	StatusTiebreaker           = "tiebreaker"
	StatusCompleted            = "completed"
)

const (
	GameTypeEightBall = "eight_ball"
	GameTypeNineBall  = "nine_ball"
)

// Settings carries the format options fixed by the scheduling system when
// the match is created.
type Settings struct {
	Format          handicap.Format
	GameType        string
	HandicapVariant string
	// GoldenBreakWins controls whether the golden_break modifier may be
	// recorded. The modifier never changes the confirmation protocol.
	GoldenBreakWins bool
}

// Match is owned by the surrounding scheduling system. This engine writes
// only the thresholds, verification and outcome fields.
type Match struct {
	ID         string
	SeasonID   string
	LeagueID   string
	HomeTeamID string
	AwayTeamID string
	Settings   Settings
	Status     string

	// Thresholds are looked up once both lineups lock and re-looked-up
	// after an approved swap. Nil until lock.
	HomeThresholds *handicap.Thresholds
	AwayThresholds *handicap.Thresholds

	HomeVerified bool
	AwayVerified bool

	WinnerTeamID string
	CompletedAt  *time.Time

	ScheduledAt time.Time
	UpdatedAt   time.Time
}

// OpponentOf returns the other competing team, or "" for an unknown team.
func (m Match) OpponentOf(teamID string) string {
	switch teamID {
	case m.HomeTeamID:
		return m.AwayTeamID
	case m.AwayTeamID:
		return m.HomeTeamID
	default:
		return ""
	}
}

// HasTeam reports whether the team competes in this match.
func (m Match) HasTeam(teamID string) bool {
	return teamID == m.HomeTeamID || teamID == m.AwayTeamID
}

// ThresholdsFor returns the stored thresholds for one side.
func (m Match) ThresholdsFor(teamID string) *handicap.Thresholds {
	if teamID == m.HomeTeamID {
		return m.HomeThresholds
	}
	if teamID == m.AwayTeamID {
		return m.AwayThresholds
	}
	return nil
}

// Outcome is the evaluator's derived result.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeHomeWin    Outcome = "home_win"
	OutcomeAwayWin    Outcome = "away_win"
	OutcomeTie        Outcome = "tie"
)

// Evaluate derives the match outcome from confirmed win counts. A win is
// checked before a tie; a tie requires both sides to define a tie threshold
// and each side to sit exactly on its own.
func Evaluate(home, away handicap.Thresholds, homeWins, awayWins int) Outcome {
	if homeWins >= home.GamesToWin {
		return OutcomeHomeWin
	}
	if awayWins >= away.GamesToWin {
		return OutcomeAwayWin
	}
	if home.GamesToTie != nil && away.GamesToTie != nil &&
		homeWins == *home.GamesToTie && awayWins == *away.GamesToTie {
		return OutcomeTie
	}
	return OutcomeInProgress
}
