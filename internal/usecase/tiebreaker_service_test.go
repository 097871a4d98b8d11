package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
)

// tiedFixture plays a three-player match to 9-9 so the tiebreaker opens.
func tiedFixture(t *testing.T) *fixture {
	t.Helper()

	f := newFixture(t, handicap.FormatThreePlayer)
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})
	for g := 1; g <= 9; g++ {
		f.confirmGame(t, g, false, homePlayerFor(g), testHomeTeamID)
	}
	for g := 10; g <= 18; g++ {
		f.confirmGame(t, g, false, awayPlayerFor(g), testAwayTeamID)
	}

	if m := f.mustMatch(t); m.Status != match.StatusTiebreaker {
		t.Fatalf("fixture status = %s, want tiebreaker", m.Status)
	}

	return f
}

func TestSubmitOrderValidation(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	// Not in a tiebreaker yet.
	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h1", "h2", "h3"}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}

	m := f.mustMatch(t)
	m.Status = match.StatusTiebreaker
	f.saveMatch(t, m)

	cases := []struct {
		name  string
		order []string
	}{
		{"too short", []string{"h1", "h2"}},
		{"outside player", []string{"h1", "h2", "h9"}},
		{"duplicate", []string{"h1", "h1", "h2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, tc.order); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h3", "h1", "h2"}); err != nil {
		t.Fatalf("valid order: %v", err)
	}
	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h1", "h2", "h3"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("resubmit err = %v, want ErrConflict", err)
	}
}

func TestTiebreakerLedgerPairsByOrder(t *testing.T) {
	f := tiedFixture(t)
	ctx := context.Background()

	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h2", "h3", "h1"}); err != nil {
		t.Fatalf("home order: %v", err)
	}
	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testAwayTeamID, []string{"a1", "a3", "a2"}); err != nil {
		t.Fatalf("away order: %v", err)
	}

	wantPairs := []struct {
		home, away, breaker string
	}{
		{"h2", "a1", "h2"},
		{"h3", "a3", "a3"},
		{"h1", "a2", "h1"},
	}
	for i, want := range wantPairs {
		r, ok, err := f.games.GetByNumber(ctx, testMatchID, i+1, true)
		if err != nil || !ok {
			t.Fatalf("get tiebreaker game %d: ok=%t err=%v", i+1, ok, err)
		}
		if r.HomePlayerID != want.home || r.AwayPlayerID != want.away {
			t.Fatalf("game %d pairing = %s vs %s, want %s vs %s",
				i+1, r.HomePlayerID, r.AwayPlayerID, want.home, want.away)
		}
		if r.BreakingPlayerID() != want.breaker {
			t.Fatalf("game %d breaker = %s, want %s", i+1, r.BreakingPlayerID(), want.breaker)
		}
	}
}

func TestTiebreakerDecisionOverridesAllRecords(t *testing.T) {
	f := tiedFixture(t)
	ctx := context.Background()

	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h1", "h2", "h3"}); err != nil {
		t.Fatalf("home order: %v", err)
	}
	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testAwayTeamID, []string{"a1", "a2", "a3"}); err != nil {
		t.Fatalf("away order: %v", err)
	}

	// Away takes game 1; home takes games 2 and 3 for the decision.
	f.confirmGame(t, 1, true, "a1", testAwayTeamID)
	f.confirmGame(t, 2, true, "h2", testHomeTeamID)
	f.confirmGame(t, 3, true, "h3", testHomeTeamID)

	m := f.mustMatch(t)
	if m.Status != match.StatusCompleted {
		t.Fatalf("status = %s, want completed", m.Status)
	}
	if m.WinnerTeamID != testHomeTeamID {
		t.Fatalf("winner = %s, want home", m.WinnerTeamID)
	}
	if m.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	// Every tiebreaker record now credits the home player assigned to it,
	// including game 1 that away actually won.
	wantWinners := []string{"h1", "h2", "h3"}
	for i, want := range wantWinners {
		r, ok, err := f.games.GetByNumber(ctx, testMatchID, i+1, true)
		if err != nil || !ok {
			t.Fatalf("get tiebreaker game %d: ok=%t err=%v", i+1, ok, err)
		}
		if r.State() != game.StateConfirmed {
			t.Fatalf("game %d state = %s, want confirmed", i+1, r.State())
		}
		if r.WinnerPlayerID != want || r.WinnerTeamID != testHomeTeamID {
			t.Fatalf("game %d winner = %s/%s, want %s/home", i+1, r.WinnerPlayerID, r.WinnerTeamID, want)
		}
	}

	results, err := f.tiebreak.PlayerResults(ctx, testMatchID)
	if err != nil {
		t.Fatalf("player results: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("result count = %d, want 3", len(results))
	}
	for _, res := range results {
		if res.TeamID != testHomeTeamID || !res.Win {
			t.Fatalf("unexpected result entry: %+v", res)
		}
	}
}

func TestTiebreakerNotDecidedAtOneWin(t *testing.T) {
	f := tiedFixture(t)
	ctx := context.Background()

	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h1", "h2", "h3"}); err != nil {
		t.Fatalf("home order: %v", err)
	}
	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testAwayTeamID, []string{"a1", "a2", "a3"}); err != nil {
		t.Fatalf("away order: %v", err)
	}

	f.confirmGame(t, 1, true, "h1", testHomeTeamID)

	m := f.mustMatch(t)
	if m.Status != match.StatusTiebreaker {
		t.Fatalf("status after one win = %s, want tiebreaker", m.Status)
	}
	if _, err := f.tiebreak.PlayerResults(ctx, testMatchID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("results before settlement err = %v, want ErrPrecondition", err)
	}
}
