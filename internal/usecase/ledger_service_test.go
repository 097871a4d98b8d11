package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
)

func TestPopulateMatchIdempotent(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	// Locking both lineups already populated the ledger; a racing second
	// call reads the existing rows instead of duplicating them.
	records, err := f.ledger.PopulateMatch(ctx, testMatchID)
	if err != nil {
		t.Fatalf("repopulate: %v", err)
	}
	if len(records) != 18 {
		t.Fatalf("record count = %d, want 18", len(records))
	}

	all, err := f.games.ListByMatch(ctx, testMatchID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 18 {
		t.Fatalf("stored count = %d, want 18", len(all))
	}
	for i, r := range records {
		if r.GameNumber != i+1 {
			t.Fatalf("record %d has game number %d", i, r.GameNumber)
		}
		if r.IsTiebreaker {
			t.Fatalf("regular record %d flagged as tiebreaker", r.GameNumber)
		}
	}
}

func TestPopulateMatchRequiresLockedLineups(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()

	if _, err := f.ledger.PopulateMatch(ctx, testMatchID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}

	if _, err := f.lineup.Lock(ctx, lockInput(testHomeTeamID, "h", []int{4, 5, 6})); err != nil {
		t.Fatalf("lock home: %v", err)
	}
	if _, err := f.ledger.PopulateMatch(ctx, testMatchID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("one lineup locked: err = %v, want ErrPrecondition", err)
	}
}

func TestPopulateTiebreakerRequiresLockedOrders(t *testing.T) {
	f := newFixture(t, handicap.FormatThreePlayer)
	ctx := context.Background()
	f.lockBoth(t, []int{4, 5, 6}, []int{4, 5, 6})

	m := f.mustMatch(t)
	m.Status = match.StatusTiebreaker
	f.saveMatch(t, m)

	if _, err := f.ledger.PopulateTiebreaker(ctx, testMatchID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("no orders: err = %v, want ErrPrecondition", err)
	}

	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testHomeTeamID, []string{"h1", "h2", "h3"}); err != nil {
		t.Fatalf("home order: %v", err)
	}
	if _, err := f.ledger.PopulateTiebreaker(ctx, testMatchID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("one order: err = %v, want ErrPrecondition", err)
	}

	if _, err := f.tiebreak.SubmitOrder(ctx, testMatchID, testAwayTeamID, []string{"a1", "a2", "a3"}); err != nil {
		t.Fatalf("away order: %v", err)
	}

	// Both orders locked: SubmitOrder populated the ledger, and an explicit
	// repopulation reads the same three rows back.
	records, err := f.ledger.PopulateTiebreaker(ctx, testMatchID)
	if err != nil {
		t.Fatalf("populate tiebreaker: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("tiebreaker record count = %d, want 3", len(records))
	}
	for _, r := range records {
		if !r.IsTiebreaker {
			t.Fatalf("game %d missing tiebreaker flag", r.GameNumber)
		}
	}
}
