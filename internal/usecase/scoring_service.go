package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/platform/logging"
)

type ProposeWinnerInput struct {
	MatchID        string
	TeamID         string
	GameNumber     int
	Tiebreaker     bool
	WinnerPlayerID string
	BreakAndRun    bool
	GoldenBreak    bool
}

type GameRef struct {
	MatchID    string
	TeamID     string
	GameNumber int
	Tiebreaker bool
}

// matchEvaluator re-derives the match outcome after a confirmation changed
// the confirmed win counts.
type matchEvaluator interface {
	EvaluateMatch(ctx context.Context, matchID string) (match.Outcome, error)
}

// tiebreakerDecider checks whether a team reached two confirmed tiebreaker
// wins and, if so, settles the match.
type tiebreakerDecider interface {
	Decide(ctx context.Context, matchID string) (bool, error)
}

// ScoringService runs the two-phase confirmation protocol over individual
// game records: propose, confirm, and the vacate flow that reopens a
// confirmed result with the opponent's consent.
type ScoringService struct {
	matchRepo match.Repository
	gameRepo  game.Repository
	broker    notify.Broker
	logger    *logging.Logger
	outcome   matchEvaluator
	tiebreak  tiebreakerDecider
	now       func() time.Time
}

func NewScoringService(
	matchRepo match.Repository,
	gameRepo game.Repository,
	broker notify.Broker,
	logger *logging.Logger,
) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ScoringService{
		matchRepo: matchRepo,
		gameRepo:  gameRepo,
		broker:    broker,
		logger:    logger,
		now:       time.Now,
	}
}

// SetEvaluators wires the outcome and tiebreaker hooks after construction.
func (s *ScoringService) SetEvaluators(outcome matchEvaluator, tiebreak tiebreakerDecider) {
	s.outcome = outcome
	s.tiebreak = tiebreak
}

// ProposeWinner records a winner on an unscored or pending game with only
// the proposer's confirmation flag set. Proposing over an opponent's pending
// proposal replaces it; proposing the same winner the opponent already put
// forward confirms it instead.
func (s *ScoringService) ProposeWinner(ctx context.Context, input ProposeWinnerInput) (game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ProposeWinner")
	defer span.End()

	input.WinnerPlayerID = strings.TrimSpace(input.WinnerPlayerID)
	if input.WinnerPlayerID == "" {
		return game.Record{}, fmt.Errorf("%w: winner_player_id is required", ErrInvalidInput)
	}

	m, r, err := s.loadScorable(ctx, GameRef{
		MatchID:    input.MatchID,
		TeamID:     input.TeamID,
		GameNumber: input.GameNumber,
		Tiebreaker: input.Tiebreaker,
	})
	if err != nil {
		return game.Record{}, err
	}

	switch r.State() {
	case game.StateUnscored, game.StatePending:
	default:
		return game.Record{}, fmt.Errorf("%w: game %d is %s, only unscored or pending games accept proposals",
			ErrPrecondition, input.GameNumber, r.State())
	}

	if input.WinnerPlayerID != r.HomePlayerID && input.WinnerPlayerID != r.AwayPlayerID {
		return game.Record{}, fmt.Errorf("%w: player %s is not assigned to game %d",
			ErrInvalidInput, input.WinnerPlayerID, input.GameNumber)
	}
	if err := validateModifiers(m, r, input); err != nil {
		return game.Record{}, err
	}

	// Agreement with the opponent's pending proposal is a confirmation.
	if r.State() == game.StatePending &&
		r.WinnerPlayerID == input.WinnerPlayerID &&
		r.ProposedBy(m.HomeTeamID, m.AwayTeamID) == m.OpponentOf(input.TeamID) {
		return s.ConfirmGame(ctx, GameRef{
			MatchID:    input.MatchID,
			TeamID:     input.TeamID,
			GameNumber: input.GameNumber,
			Tiebreaker: input.Tiebreaker,
		})
	}

	winnerTeamID := m.HomeTeamID
	if input.WinnerPlayerID == r.AwayPlayerID {
		winnerTeamID = m.AwayTeamID
	}

	r.WinnerPlayerID = input.WinnerPlayerID
	r.WinnerTeamID = winnerTeamID
	r.ConfirmedByHome = input.TeamID == m.HomeTeamID
	r.ConfirmedByAway = input.TeamID == m.AwayTeamID
	r.VacateRequestedBy = ""
	r.ConfirmedAt = nil
	r.BreakAndRun = input.BreakAndRun
	r.GoldenBreak = input.GoldenBreak
	r.UpdatedAt = s.now().UTC()

	if err := s.gameRepo.Update(ctx, r); err != nil {
		return game.Record{}, fmt.Errorf("save proposal: %w", err)
	}

	s.publishGame(ctx, input.MatchID, input.TeamID)

	return r, nil
}

// ConfirmGame is the opposing team's affirmation of a pending proposal.
// Confirming completes the record and triggers outcome evaluation.
func (s *ScoringService) ConfirmGame(ctx context.Context, ref GameRef) (game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ConfirmGame")
	defer span.End()

	m, r, err := s.loadScorable(ctx, ref)
	if err != nil {
		return game.Record{}, err
	}

	if r.State() != game.StatePending {
		return game.Record{}, fmt.Errorf("%w: game %d is %s, only pending games can be confirmed",
			ErrPrecondition, ref.GameNumber, r.State())
	}
	if r.ProposedBy(m.HomeTeamID, m.AwayTeamID) == ref.TeamID {
		return game.Record{}, fmt.Errorf("%w: a team cannot confirm its own proposal", ErrPrecondition)
	}

	confirmedAt := s.now().UTC()
	r.ConfirmedByHome = true
	r.ConfirmedByAway = true
	r.ConfirmedAt = &confirmedAt
	r.UpdatedAt = confirmedAt

	if err := s.gameRepo.Update(ctx, r); err != nil {
		return game.Record{}, fmt.Errorf("save confirmation: %w", err)
	}

	s.publishGame(ctx, ref.MatchID, ref.TeamID)

	if err := s.afterConfirmation(ctx, ref.MatchID, r.IsTiebreaker); err != nil {
		return game.Record{}, err
	}

	return r, nil
}

// RequestVacate reopens a confirmed game. The winner stays recorded but both
// confirmation flags drop, and any verification either team already
// submitted for the match is withdrawn.
func (s *ScoringService) RequestVacate(ctx context.Context, ref GameRef) (game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.RequestVacate")
	defer span.End()

	m, r, err := s.loadGame(ctx, ref)
	if err != nil {
		return game.Record{}, err
	}
	if m.Status == match.StatusCompleted {
		return game.Record{}, fmt.Errorf("%w: match is completed", ErrPrecondition)
	}
	if r.State() != game.StateConfirmed {
		return game.Record{}, fmt.Errorf("%w: game %d is %s, only confirmed games can be vacated",
			ErrPrecondition, ref.GameNumber, r.State())
	}

	r.ConfirmedByHome = false
	r.ConfirmedByAway = false
	r.ConfirmedAt = nil
	r.VacateRequestedBy = ref.TeamID
	r.UpdatedAt = s.now().UTC()

	if err := s.gameRepo.Update(ctx, r); err != nil {
		return game.Record{}, fmt.Errorf("save vacate request: %w", err)
	}

	if err := s.withdrawVerifications(ctx, m); err != nil {
		return game.Record{}, err
	}

	s.publishGame(ctx, ref.MatchID, ref.TeamID)

	return r, nil
}

// ConfirmVacate resets a vacate-pending game to unscored, clearing the
// winner and all modifiers.
func (s *ScoringService) ConfirmVacate(ctx context.Context, ref GameRef) (game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ConfirmVacate")
	defer span.End()

	_, r, err := s.loadVacatePending(ctx, ref)
	if err != nil {
		return game.Record{}, err
	}

	r.WinnerPlayerID = ""
	r.WinnerTeamID = ""
	r.VacateRequestedBy = ""
	r.BreakAndRun = false
	r.GoldenBreak = false
	r.UpdatedAt = s.now().UTC()

	if err := s.gameRepo.Update(ctx, r); err != nil {
		return game.Record{}, fmt.Errorf("save vacated game: %w", err)
	}

	s.publishGame(ctx, ref.MatchID, ref.TeamID)

	return r, nil
}

// DeclineVacate restores a vacate-pending game to its confirmed result.
func (s *ScoringService) DeclineVacate(ctx context.Context, ref GameRef) (game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.DeclineVacate")
	defer span.End()

	_, r, err := s.loadVacatePending(ctx, ref)
	if err != nil {
		return game.Record{}, err
	}

	restoredAt := s.now().UTC()
	r.ConfirmedByHome = true
	r.ConfirmedByAway = true
	r.ConfirmedAt = &restoredAt
	r.VacateRequestedBy = ""
	r.UpdatedAt = restoredAt

	if err := s.gameRepo.Update(ctx, r); err != nil {
		return game.Record{}, fmt.Errorf("save declined vacate: %w", err)
	}

	s.publishGame(ctx, ref.MatchID, ref.TeamID)

	return r, nil
}

func (s *ScoringService) ListGames(ctx context.Context, matchID string) ([]game.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ListGames")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	records, err := s.gameRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list game records: %w", err)
	}

	return records, nil
}

func (s *ScoringService) afterConfirmation(ctx context.Context, matchID string, tiebreaker bool) error {
	if tiebreaker {
		if s.tiebreak == nil {
			return nil
		}
		if _, err := s.tiebreak.Decide(ctx, matchID); err != nil {
			return fmt.Errorf("settle tiebreaker: %w", err)
		}
		return nil
	}

	if s.outcome == nil {
		return nil
	}
	if _, err := s.outcome.EvaluateMatch(ctx, matchID); err != nil {
		return fmt.Errorf("evaluate match outcome: %w", err)
	}
	return nil
}

// withdrawVerifications drops both teams' verification flags after a vacate
// request. A match waiting on verification falls back to in progress.
func (s *ScoringService) withdrawVerifications(ctx context.Context, m match.Match) error {
	if !m.HomeVerified && !m.AwayVerified && m.Status != match.StatusAwaitingVerification {
		return nil
	}

	m.HomeVerified = false
	m.AwayVerified = false
	if m.Status == match.StatusAwaitingVerification {
		m.Status = match.StatusInProgress
	}
	m.UpdatedAt = s.now().UTC()

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return fmt.Errorf("withdraw verifications: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableMatches,
		Op:      notify.OpUpdate,
		MatchID: m.ID,
	})

	return nil
}

func (s *ScoringService) loadScorable(ctx context.Context, ref GameRef) (match.Match, game.Record, error) {
	m, r, err := s.loadGame(ctx, ref)
	if err != nil {
		return match.Match{}, game.Record{}, err
	}

	if ref.Tiebreaker {
		if m.Status != match.StatusTiebreaker {
			return match.Match{}, game.Record{}, fmt.Errorf("%w: match %s is not in a tiebreaker", ErrPrecondition, ref.MatchID)
		}
		return m, r, nil
	}

	switch m.Status {
	case match.StatusInProgress, match.StatusAwaitingVerification:
		return m, r, nil
	default:
		return match.Match{}, game.Record{}, fmt.Errorf("%w: match %s is %s, scoring is closed",
			ErrPrecondition, ref.MatchID, m.Status)
	}
}

func (s *ScoringService) loadVacatePending(ctx context.Context, ref GameRef) (match.Match, game.Record, error) {
	m, r, err := s.loadGame(ctx, ref)
	if err != nil {
		return match.Match{}, game.Record{}, err
	}

	if r.State() != game.StateVacatePending {
		return match.Match{}, game.Record{}, fmt.Errorf("%w: game %d is %s, no vacate is pending",
			ErrPrecondition, ref.GameNumber, r.State())
	}
	if r.VacateRequestedBy == ref.TeamID {
		return match.Match{}, game.Record{}, fmt.Errorf("%w: only the opposing team can resolve a vacate request", ErrPrecondition)
	}

	return m, r, nil
}

func (s *ScoringService) loadGame(ctx context.Context, ref GameRef) (match.Match, game.Record, error) {
	ref.MatchID = strings.TrimSpace(ref.MatchID)
	ref.TeamID = strings.TrimSpace(ref.TeamID)
	if ref.MatchID == "" || ref.TeamID == "" {
		return match.Match{}, game.Record{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	m, exists, err := s.matchRepo.GetByID(ctx, ref.MatchID)
	if err != nil {
		return match.Match{}, game.Record{}, fmt.Errorf("get match by id: %w", err)
	}
	if !exists {
		return match.Match{}, game.Record{}, fmt.Errorf("%w: match=%s", ErrNotFound, ref.MatchID)
	}
	if !m.HasTeam(ref.TeamID) {
		return match.Match{}, game.Record{}, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, ref.TeamID, ref.MatchID)
	}

	r, exists, err := s.gameRepo.GetByNumber(ctx, ref.MatchID, ref.GameNumber, ref.Tiebreaker)
	if err != nil {
		return match.Match{}, game.Record{}, fmt.Errorf("get game record: %w", err)
	}
	if !exists {
		return match.Match{}, game.Record{}, fmt.Errorf("%w: game=%d tiebreaker=%t", ErrNotFound, ref.GameNumber, ref.Tiebreaker)
	}

	return m, r, nil
}

func (s *ScoringService) publishGame(ctx context.Context, matchID, actorTeamID string) {
	s.broker.Publish(ctx, notify.Event{
		Table:       notify.TableGames,
		Op:          notify.OpUpdate,
		MatchID:     matchID,
		ActorTeamID: actorTeamID,
	})
}

// validateModifiers checks the break_and_run and golden_break flags against
// the match settings and the record's break assignment. Both modifiers are
// only meaningful when the breaking player won.
func validateModifiers(m match.Match, r game.Record, input ProposeWinnerInput) error {
	if !input.BreakAndRun && !input.GoldenBreak {
		return nil
	}

	if r.BreakingPlayerID() != input.WinnerPlayerID {
		return fmt.Errorf("%w: break modifiers require the breaking player to win", ErrInvalidInput)
	}
	if input.GoldenBreak && !m.Settings.GoldenBreakWins {
		return fmt.Errorf("%w: golden break is not enabled for this match", ErrInvalidInput)
	}
	if input.BreakAndRun && input.GoldenBreak {
		return fmt.Errorf("%w: break_and_run and golden_break are mutually exclusive", ErrInvalidInput)
	}

	return nil
}
