package match

import (
	"testing"

	"github.com/rackline/matchplay/internal/domain/handicap"
)

func intPtr(v int) *int { return &v }

func TestEvaluate_WinBeforeTie(t *testing.T) {
	home := handicap.Thresholds{GamesToWin: 10, GamesToTie: intPtr(9), GamesToLose: 8}
	away := handicap.Thresholds{GamesToWin: 10, GamesToTie: intPtr(9), GamesToLose: 8}

	cases := []struct {
		name     string
		homeWins int
		awayWins int
		want     Outcome
	}{
		{"early", 3, 2, OutcomeInProgress},
		{"nine all is a tie", 9, 9, OutcomeTie},
		{"home reaches ten", 10, 8, OutcomeHomeWin},
		{"away reaches ten", 8, 10, OutcomeAwayWin},
		{"win checked before tie", 10, 9, OutcomeHomeWin},
		{"tie count on one side only", 9, 8, OutcomeInProgress},
	}

	for _, tc := range cases {
		if got := Evaluate(home, away, tc.homeWins, tc.awayWins); got != tc.want {
			t.Fatalf("%s: got=%s want=%s", tc.name, got, tc.want)
		}
	}
}

func TestEvaluate_NoTieWithoutThreshold(t *testing.T) {
	home := handicap.Thresholds{GamesToWin: 13, GamesToLose: 12}
	away := handicap.Thresholds{GamesToWin: 13, GamesToLose: 12}

	if got := Evaluate(home, away, 12, 12); got != OutcomeInProgress {
		t.Fatalf("formats without a tie threshold cannot tie: got=%s", got)
	}
}

func TestEvaluate_AsymmetricThresholds(t *testing.T) {
	// Differential +2: the stronger home side needs 11 and ties at 10.
	home := handicap.Thresholds{GamesToWin: 11, GamesToTie: intPtr(10), GamesToLose: 9}
	away := handicap.Thresholds{GamesToWin: 9, GamesToTie: intPtr(8), GamesToLose: 7}

	if got := Evaluate(home, away, 10, 8); got != OutcomeTie {
		t.Fatalf("10-8 under +2 thresholds should tie: got=%s", got)
	}
	if got := Evaluate(home, away, 10, 7); got != OutcomeInProgress {
		t.Fatalf("tie requires both sides exactly on threshold: got=%s", got)
	}
}

func TestOpponentOf(t *testing.T) {
	m := Match{HomeTeamID: "team-h", AwayTeamID: "team-a"}
	if m.OpponentOf("team-h") != "team-a" || m.OpponentOf("team-a") != "team-h" {
		t.Fatalf("opponent lookup broken")
	}
	if m.OpponentOf("stranger") != "" {
		t.Fatalf("unknown team must have no opponent")
	}
}
