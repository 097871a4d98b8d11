package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/lineup"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/notify"
	idgen "github.com/rackline/matchplay/internal/platform/id"
	"github.com/rackline/matchplay/internal/platform/logging"
)

// LedgerService owns the fixed-size set of game records for a match and
// its tiebreaker. Population is idempotent: when two clients race to
// initialize an empty match, the store's unique constraint rejects the
// loser, which then reads the winner's rows.
type LedgerService struct {
	matchRepo  match.Repository
	lineupRepo lineup.Repository
	gameRepo   game.Repository
	ids        idgen.Generator
	broker     notify.Broker
	logger     *logging.Logger
	now        func() time.Time
}

func NewLedgerService(
	matchRepo match.Repository,
	lineupRepo lineup.Repository,
	gameRepo game.Repository,
	ids idgen.Generator,
	broker notify.Broker,
	logger *logging.Logger,
) *LedgerService {
	if logger == nil {
		logger = logging.Default()
	}

	return &LedgerService{
		matchRepo:  matchRepo,
		lineupRepo: lineupRepo,
		gameRepo:   gameRepo,
		ids:        ids,
		broker:     broker,
		logger:     logger,
		now:        time.Now,
	}
}

// PopulateMatch creates the regular game records for a match whose lineups
// are both locked. Safe to call from both clients concurrently.
func (s *LedgerService) PopulateMatch(ctx context.Context, matchID string) ([]game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.PopulateMatch")
	defer span.End()

	m, home, away, err := s.loadLockedMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	teamSize, err := handicap.TeamSize(m.Settings.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	total, err := handicap.GameCount(m.Settings.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	records := make([]game.Record, 0, total)
	createdAt := s.now().UTC()
	for _, a := range game.AssignAll(teamSize, total) {
		homeSlot, ok := home.PlayerAt(a.HomePosition)
		if !ok {
			return nil, fmt.Errorf("%w: home lineup has no position %d", ErrPrecondition, a.HomePosition)
		}
		awaySlot, ok := away.PlayerAt(a.AwayPosition)
		if !ok {
			return nil, fmt.Errorf("%w: away lineup has no position %d", ErrPrecondition, a.AwayPosition)
		}

		recordID, err := s.ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate game record id: %w", err)
		}

		records = append(records, game.Record{
			ID:           recordID,
			MatchID:      m.ID,
			GameNumber:   a.GameNumber,
			HomePlayerID: homeSlot.PlayerID,
			AwayPlayerID: awaySlot.PlayerID,
			HomePosition: a.HomePosition,
			AwayPosition: a.AwayPosition,
			HomeAction:   a.HomeAction,
			AwayAction:   a.AwayAction,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		})
	}

	return s.create(ctx, m.ID, records, false)
}

// PopulateTiebreaker creates the 3 tiebreaker records once both teams have
// locked their tiebreaker order. Positions pair 1v1, 2v2, 3v3; home breaks
// games 1 and 3.
func (s *LedgerService) PopulateTiebreaker(ctx context.Context, matchID string) ([]game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.PopulateTiebreaker")
	defer span.End()

	m, home, away, err := s.loadLockedMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusTiebreaker {
		return nil, fmt.Errorf("%w: match %s is not in a tiebreaker", ErrPrecondition, matchID)
	}
	if !home.TiebreakerLocked || !away.TiebreakerLocked {
		return nil, fmt.Errorf("%w: both tiebreaker orders must be locked", ErrPrecondition)
	}

	total, _ := handicap.GameCount(handicap.FormatTiebreaker)
	teamSize, _ := handicap.TeamSize(handicap.FormatTiebreaker)

	records := make([]game.Record, 0, total)
	createdAt := s.now().UTC()
	for _, a := range game.AssignAll(teamSize, total) {
		recordID, err := s.ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate game record id: %w", err)
		}

		records = append(records, game.Record{
			ID:           recordID,
			MatchID:      m.ID,
			GameNumber:   a.GameNumber,
			IsTiebreaker: true,
			HomePlayerID: home.TiebreakerOrder[a.HomePosition-1],
			AwayPlayerID: away.TiebreakerOrder[a.AwayPosition-1],
			HomePosition: a.HomePosition,
			AwayPosition: a.AwayPosition,
			HomeAction:   a.HomeAction,
			AwayAction:   a.AwayAction,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		})
	}

	return s.create(ctx, m.ID, records, true)
}

func (s *LedgerService) create(ctx context.Context, matchID string, records []game.Record, tiebreaker bool) ([]game.Record, error) {
	err := s.gameRepo.CreateAll(ctx, records)
	if errors.Is(err, game.ErrDuplicateLedger) {
		s.logger.InfoContext(ctx, "ledger already populated, reading existing records",
			"match_id", matchID, "tiebreaker", tiebreaker)
		return s.listLedger(ctx, matchID, tiebreaker)
	}
	if err != nil {
		return nil, fmt.Errorf("create game records: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableGames,
		Op:      notify.OpInsert,
		MatchID: matchID,
	})

	return records, nil
}

func (s *LedgerService) listLedger(ctx context.Context, matchID string, tiebreaker bool) ([]game.Record, error) {
	all, err := s.gameRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list game records: %w", err)
	}

	out := make([]game.Record, 0, len(all))
	for _, r := range all {
		if r.IsTiebreaker == tiebreaker {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNumber < out[j].GameNumber })

	return out, nil
}

func (s *LedgerService) loadLockedMatch(ctx context.Context, matchID string) (match.Match, lineup.Lineup, lineup.Lineup, error) {
	m, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, lineup.Lineup{}, lineup.Lineup{}, fmt.Errorf("get match by id: %w", err)
	}
	if !exists {
		return match.Match{}, lineup.Lineup{}, lineup.Lineup{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	home, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, matchID, m.HomeTeamID)
	if err != nil {
		return match.Match{}, lineup.Lineup{}, lineup.Lineup{}, fmt.Errorf("get home lineup: %w", err)
	}
	if !exists || !home.Locked {
		return match.Match{}, lineup.Lineup{}, lineup.Lineup{}, fmt.Errorf("%w: home lineup is not locked", ErrPrecondition)
	}

	away, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, matchID, m.AwayTeamID)
	if err != nil {
		return match.Match{}, lineup.Lineup{}, lineup.Lineup{}, fmt.Errorf("get away lineup: %w", err)
	}
	if !exists || !away.Locked {
		return match.Match{}, lineup.Lineup{}, lineup.Lineup{}, fmt.Errorf("%w: away lineup is not locked", ErrPrecondition)
	}

	return m, home, away, nil
}
