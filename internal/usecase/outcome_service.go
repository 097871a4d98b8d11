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

// OutcomeService derives the match result from confirmed game records and
// runs the closing verification step. Evaluation is re-entrant: it is
// triggered after every confirmation and always recomputes from scratch.
type OutcomeService struct {
	matchRepo match.Repository
	gameRepo  game.Repository
	broker    notify.Broker
	logger    *logging.Logger
	now       func() time.Time
}

func NewOutcomeService(
	matchRepo match.Repository,
	gameRepo game.Repository,
	broker notify.Broker,
	logger *logging.Logger,
) *OutcomeService {
	if logger == nil {
		logger = logging.Default()
	}

	return &OutcomeService{
		matchRepo: matchRepo,
		gameRepo:  gameRepo,
		broker:    broker,
		logger:    logger,
		now:       time.Now,
	}
}

// EvaluateMatch recounts confirmed regular-game wins against both teams'
// thresholds and advances the match status accordingly: a win moves the
// match to awaiting verification, a tie opens the tiebreaker.
func (s *OutcomeService) EvaluateMatch(ctx context.Context, matchID string) (match.Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OutcomeService.EvaluateMatch")
	defer span.End()

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	if m.Status != match.StatusInProgress && m.Status != match.StatusAwaitingVerification {
		return "", fmt.Errorf("%w: match %s is %s, nothing to evaluate", ErrPrecondition, matchID, m.Status)
	}
	if m.HomeThresholds == nil || m.AwayThresholds == nil {
		return "", fmt.Errorf("%w: thresholds are not resolved for match %s", ErrPrecondition, matchID)
	}

	homeWins, awayWins, err := s.confirmedWins(ctx, m)
	if err != nil {
		return "", err
	}

	outcome := match.Evaluate(*m.HomeThresholds, *m.AwayThresholds, homeWins, awayWins)

	s.logger.InfoContext(ctx, "match outcome evaluated",
		"match_id", matchID, "home_wins", homeWins, "away_wins", awayWins, "outcome", string(outcome))

	switch outcome {
	case match.OutcomeHomeWin, match.OutcomeAwayWin:
		if m.Status != match.StatusAwaitingVerification {
			m.Status = match.StatusAwaitingVerification
			if err := s.saveAndPublish(ctx, m); err != nil {
				return "", err
			}
		}
	case match.OutcomeTie:
		m.Status = match.StatusTiebreaker
		if err := s.saveAndPublish(ctx, m); err != nil {
			return "", err
		}
	case match.OutcomeInProgress:
		// A vacate can drop the match back below a threshold while it sits
		// in awaiting_verification; the scoring service already handled the
		// status fallback in that flow.
	}

	return outcome, nil
}

// SubmitVerification records one team's sign-off on the scoresheet. The
// match completes when both teams have verified.
func (s *OutcomeService) SubmitVerification(ctx context.Context, matchID, teamID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OutcomeService.SubmitVerification")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	teamID = strings.TrimSpace(teamID)
	if matchID == "" || teamID == "" {
		return match.Match{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return match.Match{}, err
	}
	if !m.HasTeam(teamID) {
		return match.Match{}, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, teamID, matchID)
	}
	if m.Status != match.StatusAwaitingVerification {
		return match.Match{}, fmt.Errorf("%w: match %s is %s, verification is not open", ErrPrecondition, matchID, m.Status)
	}

	if teamID == m.HomeTeamID {
		m.HomeVerified = true
	} else {
		m.AwayVerified = true
	}

	if m.HomeVerified && m.AwayVerified {
		return s.finalize(ctx, m)
	}

	m.UpdatedAt = s.now().UTC()
	if err := s.saveAndPublish(ctx, m); err != nil {
		return match.Match{}, err
	}

	return m, nil
}

// finalize re-derives the winner at completion time rather than trusting a
// value captured when verification opened. Vacate requests between the two
// sign-offs would otherwise leave a stale winner.
func (s *OutcomeService) finalize(ctx context.Context, m match.Match) (match.Match, error) {
	homeWins, awayWins, err := s.confirmedWins(ctx, m)
	if err != nil {
		return match.Match{}, err
	}

	outcome := match.Evaluate(*m.HomeThresholds, *m.AwayThresholds, homeWins, awayWins)
	switch outcome {
	case match.OutcomeHomeWin:
		m.WinnerTeamID = m.HomeTeamID
	case match.OutcomeAwayWin:
		m.WinnerTeamID = m.AwayTeamID
	default:
		return match.Match{}, fmt.Errorf("%w: match %s no longer sits at a decided outcome", ErrConflict, m.ID)
	}

	completedAt := s.now().UTC()
	m.Status = match.StatusCompleted
	m.CompletedAt = &completedAt
	m.UpdatedAt = completedAt

	if err := s.saveAndPublish(ctx, m); err != nil {
		return match.Match{}, err
	}

	s.logger.InfoContext(ctx, "match completed",
		"match_id", m.ID, "winner_team_id", m.WinnerTeamID)

	return m, nil
}

func (s *OutcomeService) GetMatch(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OutcomeService.GetMatch")
	defer span.End()

	return s.getMatch(ctx, matchID)
}

func (s *OutcomeService) confirmedWins(ctx context.Context, m match.Match) (home, away int, err error) {
	records, err := s.gameRepo.ListByMatch(ctx, m.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list game records: %w", err)
	}

	for _, r := range records {
		if r.IsTiebreaker || r.State() != game.StateConfirmed {
			continue
		}
		switch r.WinnerTeamID {
		case m.HomeTeamID:
			home++
		case m.AwayTeamID:
			away++
		}
	}

	return home, away, nil
}

func (s *OutcomeService) saveAndPublish(ctx context.Context, m match.Match) error {
	m.UpdatedAt = s.now().UTC()
	if err := s.matchRepo.Update(ctx, m); err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableMatches,
		Op:      notify.OpUpdate,
		MatchID: m.ID,
	})

	return nil
}

func (s *OutcomeService) getMatch(ctx context.Context, matchID string) (match.Match, error) {
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
