package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
)

func homePlayerFor(gameNumber int) string {
	return fmt.Sprintf("h%d", (gameNumber-1)%3+1)
}

func awayPlayerFor(gameNumber int) string {
	round := (gameNumber - 1) / 3
	seat := (gameNumber - 1) % 3
	return fmt.Sprintf("a%d", (seat+round)%3+1)
}

func TestHomeWinReachesVerificationThenCompletes(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	// Even handicaps: home needs 10 wins out of 18.
	for g := 1; g <= 10; g++ {
		f.confirmGame(t, g, false, homePlayerFor(g), testHomeTeamID)
	}

	m := f.mustMatch(t)
	if m.Status != match.StatusAwaitingVerification {
		t.Fatalf("status after 10 home wins = %s, want awaiting_verification", m.Status)
	}
	if m.WinnerTeamID != "" {
		t.Fatal("winner set before verification")
	}

	// Verification outside awaiting_verification is rejected for other
	// matches; here the first sign-off leaves the match waiting.
	if _, err := f.outcome.SubmitVerification(ctx, testMatchID, testHomeTeamID); err != nil {
		t.Fatalf("home verification: %v", err)
	}
	m = f.mustMatch(t)
	if !m.HomeVerified || m.AwayVerified {
		t.Fatalf("verified flags = home:%t away:%t", m.HomeVerified, m.AwayVerified)
	}
	if m.Status != match.StatusAwaitingVerification {
		t.Fatalf("status after one verification = %s", m.Status)
	}

	completed, err := f.outcome.SubmitVerification(ctx, testMatchID, testAwayTeamID)
	if err != nil {
		t.Fatalf("away verification: %v", err)
	}
	if completed.Status != match.StatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
	if completed.WinnerTeamID != testHomeTeamID {
		t.Fatalf("winner = %s, want home", completed.WinnerTeamID)
	}
	if completed.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
}

func TestTieOpensTiebreaker(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	// Nine wins each: both teams sit exactly on their tie threshold.
	for g := 1; g <= 9; g++ {
		f.confirmGame(t, g, false, homePlayerFor(g), testHomeTeamID)
	}
	for g := 10; g <= 18; g++ {
		f.confirmGame(t, g, false, awayPlayerFor(g), testAwayTeamID)
	}

	m := f.mustMatch(t)
	if m.Status != match.StatusTiebreaker {
		t.Fatalf("status after 9-9 = %s, want tiebreaker", m.Status)
	}
	if m.WinnerTeamID != "" {
		t.Fatal("winner set on a tie")
	}
}

func TestFivePlayerNeverTies(t *testing.T) {
	f := newFixture(t, handicap.FormatFivePlayer)
	f.lockBoth(t, []int{4, 5, 6, 3, 2}, []int{4, 5, 6, 3, 2})

	// Even handicaps in the 25-game format: first to 13.
	for g := 1; g <= 12; g++ {
		player := fmt.Sprintf("h%d", (g-1)%5+1)
		f.confirmGame(t, g, false, player, testHomeTeamID)
	}
	for g := 13; g <= 24; g++ {
		round := (g - 1) / 5
		seat := (g - 1) % 5
		player := fmt.Sprintf("a%d", (seat+round)%5+1)
		f.confirmGame(t, g, false, player, testAwayTeamID)
	}

	// 12-12 in a format with no tie row keeps the match open.
	m := f.mustMatch(t)
	if m.Status != match.StatusInProgress {
		t.Fatalf("status at 12-12 = %s, want in_progress", m.Status)
	}

	f.confirmGame(t, 25, false, "h5", testHomeTeamID)
	m = f.mustMatch(t)
	if m.Status != match.StatusAwaitingVerification {
		t.Fatalf("status at 13-12 = %s, want awaiting_verification", m.Status)
	}
}

func TestVerificationRejectedBeforeOutcome(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	_, err := f.outcome.SubmitVerification(ctx, testMatchID, testHomeTeamID)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}
}

func TestEvaluateRequiresThresholds(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()

	m := f.mustMatch(t)
	m.Status = match.StatusInProgress
	f.saveMatch(t, m)

	_, err := f.outcome.EvaluateMatch(ctx, testMatchID)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}
}
