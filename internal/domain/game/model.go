package game

import "time"

const (
	ActionBreaks = "breaks"
	ActionRacks  = "racks"
)

// State is derived from a record's winner and confirmation fields; it is
// never stored.
type State string

const (
	// StateUnscored means no winner has been proposed yet.
	StateUnscored State = "unscored"
	// StatePending means one team proposed a winner and the other has not
	// affirmed it.
	StatePending State = "pending"
	// StateConfirmed means both teams affirmed the recorded winner.
	StateConfirmed State = "confirmed"
	// StateVacatePending means a confirmed result is being reopened: the
	// winner is still recorded but both confirmation flags were cleared by
	// the vacate request.
	StateVacatePending State = "vacate_pending"
)

// Record is one game of a match or tiebreaker. A record exists for every
// game number from creation; scoring only mutates the winner, confirmation
// and modifier fields.
type Record struct {
	ID           string
	MatchID      string
	GameNumber   int
	IsTiebreaker bool

	HomePlayerID string
	AwayPlayerID string
	HomePosition int
	AwayPosition int
	HomeAction   string
	AwayAction   string

	WinnerPlayerID   string
	WinnerTeamID     string
	ConfirmedByHome  bool
	ConfirmedByAway  bool
	VacateRequestedBy string
	ConfirmedAt      *time.Time

	BreakAndRun bool
	GoldenBreak bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// State classifies the record per the two-phase confirmation protocol.
// A recorded winner with neither flag set is a vacate in progress, not a
// fresh record: fresh records have no winner at all.
func (r Record) State() State {
	if r.WinnerPlayerID == "" {
		return StateUnscored
	}
	if r.ConfirmedByHome && r.ConfirmedByAway {
		return StateConfirmed
	}
	if !r.ConfirmedByHome && !r.ConfirmedByAway {
		return StateVacatePending
	}
	return StatePending
}

// ProposedBy reports which side's flag carries a pending proposal.
// Meaningful only in StatePending.
func (r Record) ProposedBy(homeTeamID, awayTeamID string) string {
	switch {
	case r.ConfirmedByHome && !r.ConfirmedByAway:
		return homeTeamID
	case r.ConfirmedByAway && !r.ConfirmedByHome:
		return awayTeamID
	default:
		return ""
	}
}

// PlayerForTeam returns the record's assigned player for one of the two
// competing teams.
func (r Record) PlayerForTeam(teamID, homeTeamID string) string {
	if teamID == homeTeamID {
		return r.HomePlayerID
	}
	return r.AwayPlayerID
}

// BreakingPlayerID returns the player assigned the break in this game.
func (r Record) BreakingPlayerID() string {
	if r.HomeAction == ActionBreaks {
		return r.HomePlayerID
	}
	return r.AwayPlayerID
}
