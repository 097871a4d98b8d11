package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/lineup"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/platform/logging"
)

// PlayerResult is a per-player win credit derived from the settled
// tiebreaker. Losing-side players receive no entries at all.
type PlayerResult struct {
	PlayerID   string
	TeamID     string
	GameNumber int
	Win        bool
}

// tiebreakerPopulator is what TiebreakerService needs from LedgerService.
type tiebreakerPopulator interface {
	PopulateTiebreaker(ctx context.Context, matchID string) ([]game.Record, error)
}

// TiebreakerService runs the three-game sub-protocol that settles a tied
// match. Entry reorders the already-locked players, and the decision step
// credits every tiebreaker game to the winning team regardless of who won
// the individual racks.
type TiebreakerService struct {
	matchRepo  match.Repository
	lineupRepo lineup.Repository
	gameRepo   game.Repository
	broker     notify.Broker
	logger     *logging.Logger
	ledger     tiebreakerPopulator
	now        func() time.Time
}

func NewTiebreakerService(
	matchRepo match.Repository,
	lineupRepo lineup.Repository,
	gameRepo game.Repository,
	broker notify.Broker,
	logger *logging.Logger,
) *TiebreakerService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TiebreakerService{
		matchRepo:  matchRepo,
		lineupRepo: lineupRepo,
		gameRepo:   gameRepo,
		broker:     broker,
		logger:     logger,
		now:        time.Now,
	}
}

// SetLedgerPopulator wires the ledger service after construction.
func (s *TiebreakerService) SetLedgerPopulator(ledger tiebreakerPopulator) {
	s.ledger = ledger
}

// SubmitOrder locks one team's tiebreaker order. The order must name three
// distinct players from the team's locked lineup; no substitutes enter at
// the tiebreaker. When both teams have locked, the tiebreaker ledger is
// populated.
func (s *TiebreakerService) SubmitOrder(ctx context.Context, matchID, teamID string, order []string) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TiebreakerService.SubmitOrder")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	teamID = strings.TrimSpace(teamID)
	if matchID == "" || teamID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return lineup.Lineup{}, err
	}
	if !m.HasTeam(teamID) {
		return lineup.Lineup{}, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, teamID, matchID)
	}
	if m.Status != match.StatusTiebreaker {
		return lineup.Lineup{}, fmt.Errorf("%w: match %s is not in a tiebreaker", ErrPrecondition, matchID)
	}

	item, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, matchID, teamID)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get lineup: %w", err)
	}
	if !exists || !item.Locked {
		return lineup.Lineup{}, fmt.Errorf("%w: lineup must be locked before a tiebreaker order", ErrPrecondition)
	}
	if item.TiebreakerLocked {
		return lineup.Lineup{}, fmt.Errorf("%w: tiebreaker order is already locked", ErrConflict)
	}

	teamSize, _ := handicap.TeamSize(handicap.FormatTiebreaker)
	if err := validateOrder(order, item, teamSize); err != nil {
		return lineup.Lineup{}, err
	}

	item.TiebreakerOrder = append([]string(nil), order...)
	item.TiebreakerLocked = true
	item.UpdatedAt = s.now().UTC()

	if err := s.lineupRepo.Upsert(ctx, item); err != nil {
		return lineup.Lineup{}, fmt.Errorf("save tiebreaker order: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:       notify.TableLineups,
		Op:          notify.OpUpdate,
		MatchID:     matchID,
		ActorTeamID: teamID,
	})

	opponent, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, matchID, m.OpponentOf(teamID))
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get opposing lineup: %w", err)
	}
	if exists && opponent.TiebreakerLocked && s.ledger != nil {
		if _, err := s.ledger.PopulateTiebreaker(ctx, matchID); err != nil {
			return lineup.Lineup{}, fmt.Errorf("populate tiebreaker ledger: %w", err)
		}
	}

	return item, nil
}

// Decide settles the tiebreaker once a team holds two confirmed wins. All
// three records are rewritten to credit the winning team's assigned players,
// including an unplayed or unconfirmed third game, and the match completes
// immediately with no verification step.
func (s *TiebreakerService) Decide(ctx context.Context, matchID string) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TiebreakerService.Decide")
	defer span.End()

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return false, err
	}
	if m.Status != match.StatusTiebreaker {
		return false, fmt.Errorf("%w: match %s is not in a tiebreaker", ErrPrecondition, matchID)
	}

	records, err := s.tiebreakerRecords(ctx, matchID)
	if err != nil {
		return false, err
	}

	homeWins, awayWins := 0, 0
	for _, r := range records {
		if r.State() != game.StateConfirmed {
			continue
		}
		switch r.WinnerTeamID {
		case m.HomeTeamID:
			homeWins++
		case m.AwayTeamID:
			awayWins++
		}
	}

	needed, err := handicap.Resolve(handicap.FormatTiebreaker, 0)
	if err != nil {
		return false, fmt.Errorf("resolve tiebreaker thresholds: %w", err)
	}

	var winnerTeamID string
	switch {
	case homeWins >= needed.GamesToWin:
		winnerTeamID = m.HomeTeamID
	case awayWins >= needed.GamesToWin:
		winnerTeamID = m.AwayTeamID
	default:
		return false, nil
	}

	if err := s.creditWinner(ctx, m, records, winnerTeamID); err != nil {
		return false, err
	}

	completedAt := s.now().UTC()
	m.Status = match.StatusCompleted
	m.WinnerTeamID = winnerTeamID
	m.CompletedAt = &completedAt
	m.UpdatedAt = completedAt

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return false, fmt.Errorf("complete match: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableMatches,
		Op:      notify.OpUpdate,
		MatchID: matchID,
	})

	s.logger.InfoContext(ctx, "tiebreaker settled",
		"match_id", matchID, "winner_team_id", winnerTeamID,
		"home_wins", homeWins, "away_wins", awayWins)

	return true, nil
}

// PlayerResults derives individual credits from a settled tiebreaker: one
// win entry per game for the winning team's assigned player and nothing for
// the losing team.
func (s *TiebreakerService) PlayerResults(ctx context.Context, matchID string) ([]PlayerResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TiebreakerService.PlayerResults")
	defer span.End()

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusCompleted || m.WinnerTeamID == "" {
		return nil, fmt.Errorf("%w: match %s is not settled", ErrPrecondition, matchID)
	}

	records, err := s.tiebreakerRecords(ctx, matchID)
	if err != nil {
		return nil, err
	}

	results := make([]PlayerResult, 0, len(records))
	for _, r := range records {
		if r.State() != game.StateConfirmed || r.WinnerTeamID != m.WinnerTeamID {
			continue
		}
		results = append(results, PlayerResult{
			PlayerID:   r.WinnerPlayerID,
			TeamID:     r.WinnerTeamID,
			GameNumber: r.GameNumber,
			Win:        true,
		})
	}

	return results, nil
}

// creditWinner rewrites every tiebreaker record as a confirmed win for the
// winning team's assigned player in that game.
func (s *TiebreakerService) creditWinner(ctx context.Context, m match.Match, records []game.Record, winnerTeamID string) error {
	confirmedAt := s.now().UTC()
	for _, r := range records {
		winnerPlayerID := r.PlayerForTeam(winnerTeamID, m.HomeTeamID)

		r.WinnerPlayerID = winnerPlayerID
		r.WinnerTeamID = winnerTeamID
		r.ConfirmedByHome = true
		r.ConfirmedByAway = true
		r.VacateRequestedBy = ""
		if r.ConfirmedAt == nil {
			t := confirmedAt
			r.ConfirmedAt = &t
		}
		r.UpdatedAt = confirmedAt

		if err := s.gameRepo.Update(ctx, r); err != nil {
			return fmt.Errorf("credit tiebreaker game %d: %w", r.GameNumber, err)
		}
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableGames,
		Op:      notify.OpUpdate,
		MatchID: m.ID,
	})

	return nil
}

func (s *TiebreakerService) tiebreakerRecords(ctx context.Context, matchID string) ([]game.Record, error) {
	all, err := s.gameRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list game records: %w", err)
	}

	records := make([]game.Record, 0, 3)
	for _, r := range all {
		if r.IsTiebreaker {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].GameNumber < records[j].GameNumber })

	return records, nil
}

func (s *TiebreakerService) getMatch(ctx context.Context, matchID string) (match.Match, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	m, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match by id: %w", err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	return m, nil
}

func validateOrder(order []string, item lineup.Lineup, teamSize int) error {
	if len(order) != teamSize {
		return fmt.Errorf("%w: tiebreaker order must name exactly %d players", ErrInvalidInput, teamSize)
	}

	seen := make(map[string]struct{}, len(order))
	for _, playerID := range order {
		playerID = strings.TrimSpace(playerID)
		if playerID == "" {
			return fmt.Errorf("%w: player id cannot be empty", ErrInvalidInput)
		}
		if !item.HasPlayer(playerID) {
			return fmt.Errorf("%w: player %s is not in the locked lineup", ErrInvalidInput, playerID)
		}
		if _, dup := seen[playerID]; dup {
			return fmt.Errorf("%w: duplicate player id %s", ErrInvalidInput, playerID)
		}
		seen[playerID] = struct{}{}
	}

	return nil
}
