package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/match"
	notifymem "github.com/rackline/matchplay/internal/infrastructure/notify/memory"
	"github.com/rackline/matchplay/internal/infrastructure/repository/memory"
	"github.com/rackline/matchplay/internal/platform/logging"
)

const (
	testMatchID    = "match-1"
	testHomeTeamID = "team-home"
	testAwayTeamID = "team-away"
)

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%03d", g.n), nil
}

type fixture struct {
	matches *memory.MatchRepository
	lineups *memory.LineupRepository
	games   *memory.GameRepository
	broker  *notifymem.Broker

	ledger   *LedgerService
	lineup   *LineupService
	scoring  *ScoringService
	outcome  *OutcomeService
	tiebreak *TiebreakerService
}

func newFixture(t *testing.T, format handicap.Format) *fixture {
	t.Helper()

	clock := time.Date(2026, time.September, 3, 19, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	matches := memory.NewMatchRepository([]match.Match{{
		ID:         testMatchID,
		SeasonID:   "fall-2026",
		LeagueID:   "river-city-8ball",
		HomeTeamID: testHomeTeamID,
		AwayTeamID: testAwayTeamID,
		Settings: match.Settings{
			Format:          format,
			GameType:        match.GameTypeEightBall,
			HandicapVariant: "standard",
			GoldenBreakWins: true,
		},
		Status:      match.StatusScheduled,
		ScheduledAt: clock,
		UpdatedAt:   clock,
	}})
	lineups := memory.NewLineupRepository(nil)
	games := memory.NewGameRepository()
	broker := notifymem.NewBroker()
	ids := &seqIDs{}
	logger := logging.NewNop()

	ledger := NewLedgerService(matches, lineups, games, ids, broker, logger)
	ledger.now = now

	lineupSvc := NewLineupService(matches, lineups, games, ids, broker)
	lineupSvc.now = now
	lineupSvc.SetLedgerPopulator(ledger)

	outcome := NewOutcomeService(matches, games, broker, logger)
	outcome.now = now

	tiebreak := NewTiebreakerService(matches, lineups, games, broker, logger)
	tiebreak.now = now
	tiebreak.SetLedgerPopulator(ledger)

	scoring := NewScoringService(matches, games, broker, logger)
	scoring.now = now
	scoring.SetEvaluators(outcome, tiebreak)

	return &fixture{
		matches:  matches,
		lineups:  lineups,
		games:    games,
		broker:   broker,
		ledger:   ledger,
		lineup:   lineupSvc,
		scoring:  scoring,
		outcome:  outcome,
		tiebreak: tiebreak,
	}
}

func (f *fixture) mustMatch(t *testing.T) match.Match {
	t.Helper()

	m, ok, err := f.matches.GetByID(context.Background(), testMatchID)
	if err != nil || !ok {
		t.Fatalf("get match: ok=%t err=%v", ok, err)
	}
	return m
}

func (f *fixture) saveMatch(t *testing.T, m match.Match) {
	t.Helper()

	if err := f.matches.Update(context.Background(), m); err != nil {
		t.Fatalf("update match: %v", err)
	}
}

// lockBoth locks a full lineup for each team. Players are named h1..hN and
// a1..aN by slot position.
func (f *fixture) lockBoth(t *testing.T, homeHandicaps, awayHandicaps []int) {
	t.Helper()

	ctx := context.Background()
	if _, err := f.lineup.Lock(ctx, lockInput(testHomeTeamID, "h", homeHandicaps)); err != nil {
		t.Fatalf("lock home lineup: %v", err)
	}
	if _, err := f.lineup.Lock(ctx, lockInput(testAwayTeamID, "a", awayHandicaps)); err != nil {
		t.Fatalf("lock away lineup: %v", err)
	}
}

func lockInput(teamID, prefix string, handicaps []int) LockLineupInput {
	slots := make([]SlotInput, 0, len(handicaps))
	for i, h := range handicaps {
		slots = append(slots, SlotInput{
			Position: i + 1,
			PlayerID: fmt.Sprintf("%s%d", prefix, i+1),
			Handicap: h,
		})
	}
	return LockLineupInput{MatchID: testMatchID, TeamID: teamID, Slots: slots}
}

// confirmGame runs the full two-phase protocol: the winner's own team
// proposes and the opponent confirms.
func (f *fixture) confirmGame(t *testing.T, gameNumber int, tiebreaker bool, winnerPlayerID, winnerTeamID string) {
	t.Helper()

	ctx := context.Background()
	if _, err := f.scoring.ProposeWinner(ctx, ProposeWinnerInput{
		MatchID:        testMatchID,
		TeamID:         winnerTeamID,
		GameNumber:     gameNumber,
		Tiebreaker:     tiebreaker,
		WinnerPlayerID: winnerPlayerID,
	}); err != nil {
		t.Fatalf("propose winner for game %d: %v", gameNumber, err)
	}

	m := f.mustMatch(t)
	if _, err := f.scoring.ConfirmGame(ctx, GameRef{
		MatchID:    testMatchID,
		TeamID:     m.OpponentOf(winnerTeamID),
		GameNumber: gameNumber,
		Tiebreaker: tiebreaker,
	}); err != nil {
		t.Fatalf("confirm game %d: %v", gameNumber, err)
	}
}
