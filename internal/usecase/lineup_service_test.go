package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
)

func TestLockBothLineupsActivatesMatch(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()

	if _, err := f.lineup.Lock(ctx, lockInput(testHomeTeamID, "h", []int{4, 5, 6})); err != nil {
		t.Fatalf("lock home: %v", err)
	}

	m := f.mustMatch(t)
	if m.Status != match.StatusScheduled {
		t.Fatalf("status after one lock = %s, want scheduled", m.Status)
	}
	if m.HomeThresholds != nil {
		t.Fatal("thresholds resolved before both lineups locked")
	}

	if _, err := f.lineup.Lock(ctx, lockInput(testAwayTeamID, "a", []int{3, 4, 6})); err != nil {
		t.Fatalf("lock away: %v", err)
	}

	m = f.mustMatch(t)
	if m.Status != match.StatusInProgress {
		t.Fatalf("status after both locks = %s, want in_progress", m.Status)
	}

	// Differential home-away is +2: home needs 11, away needs 9.
	if m.HomeThresholds == nil || m.AwayThresholds == nil {
		t.Fatal("thresholds not resolved")
	}
	if m.HomeThresholds.GamesToWin != 11 {
		t.Fatalf("home games to win = %d, want 11", m.HomeThresholds.GamesToWin)
	}
	if m.AwayThresholds.GamesToWin != 9 {
		t.Fatalf("away games to win = %d, want 9", m.AwayThresholds.GamesToWin)
	}
	if m.HomeThresholds.GamesToTie == nil || *m.HomeThresholds.GamesToTie != 10 {
		t.Fatalf("home games to tie = %v, want 10", m.HomeThresholds.GamesToTie)
	}
	if m.AwayThresholds.GamesToTie == nil || *m.AwayThresholds.GamesToTie != 8 {
		t.Fatalf("away games to tie = %v, want 8", m.AwayThresholds.GamesToTie)
	}

	records, err := f.games.ListByMatch(ctx, testMatchID)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(records) != 18 {
		t.Fatalf("ledger size = %d, want 18", len(records))
	}
	for _, r := range records {
		if r.State() != game.StateUnscored {
			t.Fatalf("game %d created in state %s", r.GameNumber, r.State())
		}
	}
}

func TestLockLineupValidation(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()

	cases := []struct {
		name  string
		input LockLineupInput
	}{
		{
			name: "wrong size",
			input: LockLineupInput{MatchID: testMatchID, TeamID: testHomeTeamID, Slots: []SlotInput{
				{Position: 1, PlayerID: "h1", Handicap: 5},
				{Position: 2, PlayerID: "h2", Handicap: 5},
			}},
		},
		{
			name: "duplicate position",
			input: LockLineupInput{MatchID: testMatchID, TeamID: testHomeTeamID, Slots: []SlotInput{
				{Position: 1, PlayerID: "h1", Handicap: 5},
				{Position: 1, PlayerID: "h2", Handicap: 5},
				{Position: 3, PlayerID: "h3", Handicap: 5},
			}},
		},
		{
			name: "duplicate player",
			input: LockLineupInput{MatchID: testMatchID, TeamID: testHomeTeamID, Slots: []SlotInput{
				{Position: 1, PlayerID: "h1", Handicap: 5},
				{Position: 2, PlayerID: "h1", Handicap: 5},
				{Position: 3, PlayerID: "h3", Handicap: 5},
			}},
		},
		{
			name: "unknown team",
			input: LockLineupInput{MatchID: testMatchID, TeamID: "team-nowhere", Slots: []SlotInput{
				{Position: 1, PlayerID: "x1", Handicap: 5},
				{Position: 2, PlayerID: "x2", Handicap: 5},
				{Position: 3, PlayerID: "x3", Handicap: 5},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.lineup.Lock(ctx, tc.input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLockLineupTwiceConflicts(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()

	input := lockInput(testHomeTeamID, "h", []int{4, 5, 6})
	if _, err := f.lineup.Lock(ctx, input); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := f.lineup.Lock(ctx, input); !errors.Is(err, ErrConflict) {
		t.Fatalf("second lock err = %v, want ErrConflict", err)
	}
}

func TestSwapApprovalPropagatesAndRefreshesThresholds(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	if _, err := f.lineup.ProposeSwap(ctx, SwapInput{
		MatchID:     testMatchID,
		TeamID:      testHomeTeamID,
		Position:    2,
		NewPlayerID: "h9",
		NewHandicap: 7,
	}); err != nil {
		t.Fatalf("propose swap: %v", err)
	}

	updated, err := f.lineup.ApproveSwap(ctx, testMatchID, testAwayTeamID)
	if err != nil {
		t.Fatalf("approve swap: %v", err)
	}
	if updated.SwapPending() {
		t.Fatal("swap fields not cleared after approval")
	}
	slot, ok := updated.PlayerAt(2)
	if !ok || slot.PlayerID != "h9" || slot.Handicap != 7 {
		t.Fatalf("slot 2 after swap = %+v", slot)
	}

	// Home total rose by 2, so the thresholds shift one row each way.
	m := f.mustMatch(t)
	if m.HomeThresholds.GamesToWin != 11 || m.AwayThresholds.GamesToWin != 9 {
		t.Fatalf("thresholds after swap = %d/%d, want 11/9",
			m.HomeThresholds.GamesToWin, m.AwayThresholds.GamesToWin)
	}

	records, err := f.games.ListByMatch(ctx, testMatchID)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	for _, r := range records {
		if r.HomePlayerID == "h2" {
			t.Fatalf("game %d still assigned to the swapped-out player", r.GameNumber)
		}
	}
}

func TestProposeSwapRejectedAfterConfirmedGame(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	// Game 1 is home slot 1 vs away slot 1.
	f.confirmGame(t, 1, false, "h1", testHomeTeamID)

	_, err := f.lineup.ProposeSwap(ctx, SwapInput{
		MatchID:     testMatchID,
		TeamID:      testHomeTeamID,
		Position:    1,
		NewPlayerID: "h9",
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}
}

func TestApproveSwapVoidedByLateConfirmation(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	if _, err := f.lineup.ProposeSwap(ctx, SwapInput{
		MatchID:     testMatchID,
		TeamID:      testHomeTeamID,
		Position:    1,
		NewPlayerID: "h9",
	}); err != nil {
		t.Fatalf("propose swap: %v", err)
	}

	// The outgoing player completes a game while the swap is pending.
	f.confirmGame(t, 1, false, "h1", testHomeTeamID)

	if _, err := f.lineup.ApproveSwap(ctx, testMatchID, testAwayTeamID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("approve err = %v, want ErrPrecondition", err)
	}

	item, ok, err := f.lineups.GetByMatchAndTeam(ctx, testMatchID, testHomeTeamID)
	if err != nil || !ok {
		t.Fatalf("get lineup: ok=%t err=%v", ok, err)
	}
	if item.SwapPending() {
		t.Fatal("stale swap not cleared")
	}
}

func TestDenySwapKeepsLineup(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	if _, err := f.lineup.ProposeSwap(ctx, SwapInput{
		MatchID:     testMatchID,
		TeamID:      testAwayTeamID,
		Position:    3,
		NewPlayerID: "a9",
	}); err != nil {
		t.Fatalf("propose swap: %v", err)
	}

	denied, err := f.lineup.DenySwap(ctx, testMatchID, testHomeTeamID)
	if err != nil {
		t.Fatalf("deny swap: %v", err)
	}
	if denied.SwapPending() {
		t.Fatal("swap fields not cleared after denial")
	}
	slot, _ := denied.PlayerAt(3)
	if slot.PlayerID != "a3" {
		t.Fatalf("slot 3 = %s, want a3 unchanged", slot.PlayerID)
	}
}
