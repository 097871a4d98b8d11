package game

// Assignment pairs lineup positions for one game and fixes who breaks.
// It is a pure function of team size and game number so that both clients
// derive identical ledgers without coordination.
type Assignment struct {
	GameNumber   int
	HomePosition int
	AwayPosition int
	HomeAction   string
	AwayAction   string
}

// Assign returns the pairing for game number g (1-based) in a round-robin
// of the given team size. Games run in rounds of teamSize; within round r,
// seat p hosts home position p+1 against away position ((p+r) mod size)+1,
// so a double cycle meets every pairing exactly twice. The break alternates
// by game number: home breaks odd games, away breaks even games.
func Assign(teamSize, g int) Assignment {
	r := (g - 1) / teamSize
	p := (g - 1) % teamSize

	a := Assignment{
		GameNumber:   g,
		HomePosition: p + 1,
		AwayPosition: (p+r)%teamSize + 1,
	}
	if g%2 == 1 {
		a.HomeAction = ActionBreaks
		a.AwayAction = ActionRacks
	} else {
		a.HomeAction = ActionRacks
		a.AwayAction = ActionBreaks
	}

	return a
}

// AssignAll returns the assignments for a full ledger of n games.
func AssignAll(teamSize, n int) []Assignment {
	out := make([]Assignment, 0, n)
	for g := 1; g <= n; g++ {
		out = append(out, Assign(teamSize, g))
	}
	return out
}
