package lineup

import "time"

// Slot is one ordered player position in a locked lineup. The handicap is
// frozen at lock time and only changes through an approved swap.
type Slot struct {
	Position int
	PlayerID string
	Handicap int
}

// Lineup stores one team's roster for a single match.
type Lineup struct {
	ID      string
	MatchID string
	TeamID  string
	Slots   []Slot
	// TeamModifier is a flat team-level handicap adjustment applied on top
	// of the slot handicaps (home-side advantage in some leagues).
	TeamModifier int
	Locked       bool
	LockedAt     *time.Time

	// Pending single-slot swap, awaiting the opposing team's approval.
	SwapPosition *int
	SwapPlayerID string
	SwapHandicap int

	// Tiebreaker reordering of the locked players. Kept separate so the
	// locked slots are never mutated by tiebreaker entry.
	TiebreakerOrder  []string
	TiebreakerLocked bool

	UpdatedAt time.Time
}

// TotalHandicap sums the frozen slot handicaps plus the team modifier.
func (l Lineup) TotalHandicap() int {
	total := l.TeamModifier
	for _, slot := range l.Slots {
		total += slot.Handicap
	}
	return total
}

// PlayerAt returns the player occupying a 1-based position.
func (l Lineup) PlayerAt(position int) (Slot, bool) {
	for _, slot := range l.Slots {
		if slot.Position == position {
			return slot, true
		}
	}
	return Slot{}, false
}

// HasPlayer reports whether the given player occupies any slot.
func (l Lineup) HasPlayer(playerID string) bool {
	for _, slot := range l.Slots {
		if slot.PlayerID == playerID {
			return true
		}
	}
	return false
}

// SwapPending reports whether a slot swap is awaiting approval.
func (l Lineup) SwapPending() bool {
	return l.SwapPosition != nil
}
