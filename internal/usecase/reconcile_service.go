package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/lineup"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/platform/logging"
	"github.com/rackline/matchplay/internal/platform/resilience"
)

// QueueKind names the action a confirmation queue item asks the session's
// team to take.
type QueueKind string

const (
	QueueConfirmProposal QueueKind = "confirm_proposal"
	QueueConfirmVacate   QueueKind = "confirm_vacate"
	QueueApproveSwap     QueueKind = "approve_swap"
)

// ConfirmationQueueItem is derived per session from fetched state and never
// persisted. Two sessions of the same team always derive identical queues
// from identical state.
type ConfirmationQueueItem struct {
	Kind        QueueKind
	MatchID     string
	GameNumber  int
	Tiebreaker  bool
	RequestedBy string

	// Proposal payload, set for confirm_proposal.
	WinnerPlayerID string
	WinnerTeamID   string

	// Swap payload, set for approve_swap.
	SwapPosition int
	SwapPlayerID string
}

// Snapshot is the full reconciled state pushed to a session after each
// relevant change event. Events carry no deltas, so every push is a whole
// refetch.
type Snapshot struct {
	Match       match.Match
	Lineups     []lineup.Lineup
	Games       []game.Record
	Queue       []ConfirmationQueueItem
	RefreshedAt time.Time
}

// Session is one client's live view of one match from one team's side.
type Session struct {
	matchID string
	teamID  string

	updates     chan Snapshot
	unsubscribe func()
	closeOnce   sync.Once
	done        chan struct{}
}

// Updates delivers reconciled snapshots. The channel holds only the latest
// snapshot; a slow reader sees states skipped, never reordered.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		close(s.done)
	})
}

const defaultIntentTTL = 5 * time.Second

// ReconcileService keeps client sessions consistent with the store. Broker
// events are dispatched on a shared worker pool, refetches for the same
// match are collapsed through single flight, and transitions a session's
// own team just performed are suppressed via the intent log.
type ReconcileService struct {
	matchRepo  match.Repository
	lineupRepo lineup.Repository
	gameRepo   game.Repository
	broker     notify.Broker
	logger     *logging.Logger

	pool    *ants.Pool
	flights resilience.SingleFlight

	mu        sync.Mutex
	intents   map[string]time.Time
	intentTTL time.Duration

	now func() time.Time
}

func NewReconcileService(
	matchRepo match.Repository,
	lineupRepo lineup.Repository,
	gameRepo game.Repository,
	broker notify.Broker,
	logger *logging.Logger,
	poolSize int,
) (*ReconcileService, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if poolSize < 1 {
		poolSize = 32
	}

	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create reconcile worker pool: %w", err)
	}

	return &ReconcileService{
		matchRepo:  matchRepo,
		lineupRepo: lineupRepo,
		gameRepo:   gameRepo,
		broker:     broker,
		logger:     logger,
		pool:       pool,
		intents:    make(map[string]time.Time),
		intentTTL:  defaultIntentTTL,
		now:        time.Now,
	}, nil
}

// Close releases the worker pool. Open sessions keep their subscriptions
// and must be closed individually.
func (s *ReconcileService) Close() {
	s.pool.Release()
}

// Open starts a session for one team's view of a match. The session
// receives an immediate snapshot and then one per relevant change event.
func (s *ReconcileService) Open(ctx context.Context, matchID, teamID string) (*Session, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Open")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	teamID = strings.TrimSpace(teamID)
	if matchID == "" || teamID == "" {
		return nil, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	m, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("get match by id: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	if !m.HasTeam(teamID) {
		return nil, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, teamID, matchID)
	}

	events, unsubscribe := s.broker.Subscribe(matchID)
	session := &Session{
		matchID:     matchID,
		teamID:      teamID,
		updates:     make(chan Snapshot, 1),
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}

	go s.run(session, events)

	snapshot, err := s.Refetch(ctx, matchID, teamID)
	if err != nil {
		session.Close()
		return nil, err
	}
	session.push(snapshot)

	return session, nil
}

// RecordIntent marks that a team's own client is about to write to a table
// of this match. The matching change event is then suppressed for that
// team's sessions, because the client already holds the post-write state.
func (s *ReconcileService) RecordIntent(matchID, teamID string, table notify.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.intents[intentKey(matchID, teamID, table)] = s.now().Add(s.intentTTL)
}

// Refetch loads the full match state and derives the team's confirmation
// queue. Concurrent refetches for the same match share one set of reads.
func (s *ReconcileService) Refetch(ctx context.Context, matchID, teamID string) (Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Refetch")
	defer span.End()

	val, err, _ := s.flights.Do("reconcile:"+matchID, func() (any, error) {
		return s.fetchState(ctx, matchID)
	})
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := val.(Snapshot)
	snapshot.Queue = deriveQueue(snapshot.Match, snapshot.Lineups, snapshot.Games, teamID)
	snapshot.RefreshedAt = s.now().UTC()

	return snapshot, nil
}

func (s *ReconcileService) run(session *Session, events <-chan notify.Event) {
	for {
		select {
		case <-session.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if s.suppressed(session, event) {
				continue
			}
			if err := s.pool.Submit(func() { s.deliver(session) }); err != nil {
				// Pool saturated or released; reconcile inline rather than
				// drop the event.
				s.deliver(session)
			}
		}
	}
}

func (s *ReconcileService) deliver(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := s.Refetch(ctx, session.matchID, session.teamID)
	if err != nil {
		s.logger.WarnContext(ctx, "session refetch failed",
			"match_id", session.matchID, "team_id", session.teamID, "error", err.Error())
		return
	}

	session.push(snapshot)
}

// suppressed reports whether the event describes a write the session's own
// team just performed and announced via RecordIntent.
func (s *ReconcileService) suppressed(session *Session, event notify.Event) bool {
	if event.ActorTeamID == "" || event.ActorTeamID != session.teamID {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := intentKey(session.matchID, session.teamID, event.Table)
	deadline, ok := s.intents[key]
	if !ok {
		return false
	}
	if s.now().After(deadline) {
		delete(s.intents, key)
		return false
	}

	return true
}

func (s *ReconcileService) fetchState(ctx context.Context, matchID string) (Snapshot, error) {
	var (
		snapshot Snapshot
		matchErr error
		lineErr  error
		gameErr  error
	)

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		m, exists, err := s.matchRepo.GetByID(ctx, matchID)
		if err != nil {
			matchErr = fmt.Errorf("get match by id: %w", err)
			return
		}
		if !exists {
			matchErr = fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
			return
		}
		snapshot.Match = m
	})
	wg.Go(func() {
		items, err := s.lineupRepo.ListByMatch(ctx, matchID)
		if err != nil {
			lineErr = fmt.Errorf("list lineups: %w", err)
			return
		}
		snapshot.Lineups = items
	})
	wg.Go(func() {
		records, err := s.gameRepo.ListByMatch(ctx, matchID)
		if err != nil {
			gameErr = fmt.Errorf("list game records: %w", err)
			return
		}
		snapshot.Games = records
	})
	wg.Wait()

	for _, err := range []error{matchErr, lineErr, gameErr} {
		if err != nil {
			return Snapshot{}, err
		}
	}

	return snapshot, nil
}

// push replaces any undelivered snapshot with the newer one.
func (s *Session) push(snapshot Snapshot) {
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func intentKey(matchID, teamID string, table notify.Table) string {
	return matchID + "|" + teamID + "|" + string(table)
}

// deriveQueue lists the actions awaiting the team: opponent proposals to
// confirm, opponent vacate requests to resolve, and an opponent swap to
// approve. Items are ordered by game number with the swap item last.
func deriveQueue(m match.Match, lineups []lineup.Lineup, games []game.Record, teamID string) []ConfirmationQueueItem {
	opponent := m.OpponentOf(teamID)
	if opponent == "" {
		return nil
	}

	queue := make([]ConfirmationQueueItem, 0, 4)
	for _, r := range games {
		switch r.State() {
		case game.StatePending:
			if r.ProposedBy(m.HomeTeamID, m.AwayTeamID) != opponent {
				continue
			}
			queue = append(queue, ConfirmationQueueItem{
				Kind:           QueueConfirmProposal,
				MatchID:        m.ID,
				GameNumber:     r.GameNumber,
				Tiebreaker:     r.IsTiebreaker,
				RequestedBy:    opponent,
				WinnerPlayerID: r.WinnerPlayerID,
				WinnerTeamID:   r.WinnerTeamID,
			})
		case game.StateVacatePending:
			if r.VacateRequestedBy != opponent {
				continue
			}
			queue = append(queue, ConfirmationQueueItem{
				Kind:        QueueConfirmVacate,
				MatchID:     m.ID,
				GameNumber:  r.GameNumber,
				Tiebreaker:  r.IsTiebreaker,
				RequestedBy: opponent,
			})
		}
	}

	sort.Slice(queue, func(i, j int) bool {
		if queue[i].Tiebreaker != queue[j].Tiebreaker {
			return !queue[i].Tiebreaker
		}
		return queue[i].GameNumber < queue[j].GameNumber
	})

	for _, l := range lineups {
		if l.TeamID == opponent && l.SwapPending() {
			queue = append(queue, ConfirmationQueueItem{
				Kind:         QueueApproveSwap,
				MatchID:      m.ID,
				RequestedBy:  opponent,
				SwapPosition: *l.SwapPosition,
				SwapPlayerID: l.SwapPlayerID,
			})
		}
	}

	return queue
}
