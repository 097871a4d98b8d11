package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/lineup"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/notify"
	idgen "github.com/rackline/matchplay/internal/platform/id"
)

type SlotInput struct {
	Position int
	PlayerID string
	Handicap int
}

type LockLineupInput struct {
	MatchID      string
	TeamID       string
	Slots        []SlotInput
	TeamModifier int
}

type SwapInput struct {
	MatchID     string
	TeamID      string
	Position    int
	NewPlayerID string
	NewHandicap int
}

// ledgerPopulator is what LineupService needs from LedgerService: create
// the game records once the second lineup locks.
type ledgerPopulator interface {
	PopulateMatch(ctx context.Context, matchID string) ([]game.Record, error)
}

// LineupService governs lineup locking and the single-slot swap flow.
// Locked lineups are immutable except through an approved swap, and the
// per-player handicaps frozen at lock time drive the threshold lookup.
type LineupService struct {
	matchRepo  match.Repository
	lineupRepo lineup.Repository
	gameRepo   game.Repository
	ids        idgen.Generator
	broker     notify.Broker
	ledger     ledgerPopulator
	now        func() time.Time
}

func NewLineupService(
	matchRepo match.Repository,
	lineupRepo lineup.Repository,
	gameRepo game.Repository,
	ids idgen.Generator,
	broker notify.Broker,
) *LineupService {
	return &LineupService{
		matchRepo:  matchRepo,
		lineupRepo: lineupRepo,
		gameRepo:   gameRepo,
		ids:        ids,
		broker:     broker,
		now:        time.Now,
	}
}

// SetLedgerPopulator wires the ledger service after construction; the two
// services reference each other through narrow interfaces.
func (s *LineupService) SetLedgerPopulator(ledger ledgerPopulator) {
	s.ledger = ledger
}

// Lock freezes a team's lineup. When the opposing lineup is already locked
// this also resolves both teams' thresholds, moves the match in progress
// and populates the game ledger.
func (s *LineupService) Lock(ctx context.Context, input LockLineupInput) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.Lock")
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.MatchID == "" || input.TeamID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	m, err := s.getMatch(ctx, input.MatchID)
	if err != nil {
		return lineup.Lineup{}, err
	}
	if !m.HasTeam(input.TeamID) {
		return lineup.Lineup{}, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, input.TeamID, input.MatchID)
	}
	if m.Status != match.StatusScheduled {
		return lineup.Lineup{}, fmt.Errorf("%w: lineups can only lock while the match is scheduled", ErrPrecondition)
	}

	teamSize, err := handicap.TeamSize(m.Settings.Format)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	slots, err := validateSlots(input.Slots, teamSize)
	if err != nil {
		return lineup.Lineup{}, err
	}

	existing, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, input.MatchID, input.TeamID)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get lineup: %w", err)
	}
	if exists && existing.Locked {
		return lineup.Lineup{}, fmt.Errorf("%w: lineup is already locked", ErrConflict)
	}

	item := existing
	if !exists {
		lineupID, err := s.ids.NewID()
		if err != nil {
			return lineup.Lineup{}, fmt.Errorf("generate lineup id: %w", err)
		}
		item = lineup.Lineup{ID: lineupID, MatchID: input.MatchID, TeamID: input.TeamID}
	}

	lockedAt := s.now().UTC()
	item.Slots = slots
	item.TeamModifier = input.TeamModifier
	item.Locked = true
	item.LockedAt = &lockedAt
	item.UpdatedAt = lockedAt

	if err := s.lineupRepo.Upsert(ctx, item); err != nil {
		return lineup.Lineup{}, fmt.Errorf("save lineup: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:       notify.TableLineups,
		Op:          notify.OpUpdate,
		MatchID:     input.MatchID,
		ActorTeamID: input.TeamID,
	})

	opponent, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, input.MatchID, m.OpponentOf(input.TeamID))
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get opposing lineup: %w", err)
	}
	if !exists || !opponent.Locked {
		return item, nil
	}

	if err := s.activateMatch(ctx, m, item, opponent); err != nil {
		return lineup.Lineup{}, err
	}

	return item, nil
}

// ProposeSwap stages a single-slot substitution for the opposing team to
// approve. Swapping out a player who already completed a confirmed game is
// rejected outright.
func (s *LineupService) ProposeSwap(ctx context.Context, input SwapInput) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.ProposeSwap")
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.TeamID = strings.TrimSpace(input.TeamID)
	input.NewPlayerID = strings.TrimSpace(input.NewPlayerID)
	if input.MatchID == "" || input.TeamID == "" || input.NewPlayerID == "" {
		return lineup.Lineup{}, fmt.Errorf("%w: match_id, team_id and new_player_id are required", ErrInvalidInput)
	}

	m, err := s.getMatch(ctx, input.MatchID)
	if err != nil {
		return lineup.Lineup{}, err
	}
	if !m.HasTeam(input.TeamID) {
		return lineup.Lineup{}, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, input.TeamID, input.MatchID)
	}
	if m.Status == match.StatusCompleted {
		return lineup.Lineup{}, fmt.Errorf("%w: match is completed", ErrPrecondition)
	}

	item, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, input.MatchID, input.TeamID)
	if err != nil {
		return lineup.Lineup{}, fmt.Errorf("get lineup: %w", err)
	}
	if !exists || !item.Locked {
		return lineup.Lineup{}, fmt.Errorf("%w: lineup must be locked before swapping", ErrPrecondition)
	}
	if item.SwapPending() {
		return lineup.Lineup{}, fmt.Errorf("%w: a swap is already pending approval", ErrConflict)
	}

	slot, ok := item.PlayerAt(input.Position)
	if !ok {
		return lineup.Lineup{}, fmt.Errorf("%w: lineup has no position %d", ErrInvalidInput, input.Position)
	}
	if item.HasPlayer(input.NewPlayerID) {
		return lineup.Lineup{}, fmt.Errorf("%w: player %s is already in the lineup", ErrInvalidInput, input.NewPlayerID)
	}

	confirmed, err := s.confirmedGameCount(ctx, input.MatchID, slot.PlayerID)
	if err != nil {
		return lineup.Lineup{}, err
	}
	if confirmed > 0 {
		return lineup.Lineup{}, fmt.Errorf("%w: player %s has %d confirmed game(s)", ErrPrecondition, slot.PlayerID, confirmed)
	}

	position := input.Position
	item.SwapPosition = &position
	item.SwapPlayerID = input.NewPlayerID
	item.SwapHandicap = input.NewHandicap
	item.UpdatedAt = s.now().UTC()

	if err := s.lineupRepo.Upsert(ctx, item); err != nil {
		return lineup.Lineup{}, fmt.Errorf("save lineup swap: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:       notify.TableLineups,
		Op:          notify.OpUpdate,
		MatchID:     input.MatchID,
		ActorTeamID: input.TeamID,
	})

	return item, nil
}

// ApproveSwap is called by the opposing team. It re-checks the outgoing
// player, replaces the slot, propagates the new player into all unplayed
// records for that slot, and re-looks-up both teams' thresholds.
func (s *LineupService) ApproveSwap(ctx context.Context, matchID, approvingTeamID string) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.ApproveSwap")
	defer span.End()

	m, swapping, err := s.pendingSwapLineup(ctx, matchID, approvingTeamID)
	if err != nil {
		return lineup.Lineup{}, err
	}

	position := *swapping.SwapPosition
	slot, ok := swapping.PlayerAt(position)
	if !ok {
		return lineup.Lineup{}, fmt.Errorf("%w: lineup has no position %d", ErrConflict, position)
	}

	confirmed, err := s.confirmedGameCount(ctx, matchID, slot.PlayerID)
	if err != nil {
		return lineup.Lineup{}, err
	}
	if confirmed > 0 {
		// The outgoing player completed a game while the swap was pending.
		// The swap is void; clear it rather than leave it dangling.
		swapping = clearSwap(swapping, s.now().UTC())
		if saveErr := s.lineupRepo.Upsert(ctx, swapping); saveErr != nil {
			return lineup.Lineup{}, fmt.Errorf("clear stale swap: %w", saveErr)
		}
		return lineup.Lineup{}, fmt.Errorf("%w: player %s has %d confirmed game(s)", ErrPrecondition, slot.PlayerID, confirmed)
	}

	outgoingPlayerID := slot.PlayerID
	newPlayerID := swapping.SwapPlayerID
	for i := range swapping.Slots {
		if swapping.Slots[i].Position == position {
			swapping.Slots[i].PlayerID = newPlayerID
			swapping.Slots[i].Handicap = swapping.SwapHandicap
		}
	}
	swapping = clearSwap(swapping, s.now().UTC())

	if err := s.lineupRepo.Upsert(ctx, swapping); err != nil {
		return lineup.Lineup{}, fmt.Errorf("save approved swap: %w", err)
	}

	if err := s.propagateSwap(ctx, matchID, swapping.TeamID, m.HomeTeamID, outgoingPlayerID, newPlayerID); err != nil {
		return lineup.Lineup{}, err
	}

	if err := s.refreshThresholds(ctx, m); err != nil {
		return lineup.Lineup{}, err
	}

	s.broker.Publish(ctx, notify.Event{
		Table:       notify.TableLineups,
		Op:          notify.OpUpdate,
		MatchID:     matchID,
		ActorTeamID: approvingTeamID,
	})

	return swapping, nil
}

// DenySwap clears a pending swap without touching the lineup.
func (s *LineupService) DenySwap(ctx context.Context, matchID, denyingTeamID string) (lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.DenySwap")
	defer span.End()

	_, swapping, err := s.pendingSwapLineup(ctx, matchID, denyingTeamID)
	if err != nil {
		return lineup.Lineup{}, err
	}

	swapping = clearSwap(swapping, s.now().UTC())
	if err := s.lineupRepo.Upsert(ctx, swapping); err != nil {
		return lineup.Lineup{}, fmt.Errorf("save denied swap: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:       notify.TableLineups,
		Op:          notify.OpUpdate,
		MatchID:     matchID,
		ActorTeamID: denyingTeamID,
	})

	return swapping, nil
}

func (s *LineupService) ListByMatch(ctx context.Context, matchID string) ([]lineup.Lineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LineupService.ListByMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	items, err := s.lineupRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list lineups: %w", err)
	}

	return items, nil
}

func (s *LineupService) activateMatch(ctx context.Context, m match.Match, own, opponent lineup.Lineup) error {
	home, away := own, opponent
	if own.TeamID != m.HomeTeamID {
		home, away = opponent, own
	}

	homeThresholds, awayThresholds, err := resolveThresholdPair(m.Settings.Format, home, away)
	if err != nil {
		return err
	}

	m.HomeThresholds = &homeThresholds
	m.AwayThresholds = &awayThresholds
	m.Status = match.StatusInProgress
	m.UpdatedAt = s.now().UTC()

	if err := s.matchRepo.Update(ctx, m); err != nil {
		return fmt.Errorf("update match thresholds: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableMatches,
		Op:      notify.OpUpdate,
		MatchID: m.ID,
	})

	if s.ledger != nil {
		if _, err := s.ledger.PopulateMatch(ctx, m.ID); err != nil {
			return fmt.Errorf("populate ledger: %w", err)
		}
	}

	return nil
}

// refreshThresholds re-looks-up both sides after an approved swap changed
// a team's total handicap. The pair is replaced wholesale, never patched.
func (s *LineupService) refreshThresholds(ctx context.Context, m match.Match) error {
	home, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, m.ID, m.HomeTeamID)
	if err != nil || !exists {
		return fmt.Errorf("get home lineup for threshold refresh: %w", err)
	}
	away, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, m.ID, m.AwayTeamID)
	if err != nil || !exists {
		return fmt.Errorf("get away lineup for threshold refresh: %w", err)
	}

	homeThresholds, awayThresholds, err := resolveThresholdPair(m.Settings.Format, home, away)
	if err != nil {
		return err
	}

	current, exists, err := s.matchRepo.GetByID(ctx, m.ID)
	if err != nil || !exists {
		return fmt.Errorf("get match for threshold refresh: %w", err)
	}

	current.HomeThresholds = &homeThresholds
	current.AwayThresholds = &awayThresholds
	current.UpdatedAt = s.now().UTC()

	if err := s.matchRepo.Update(ctx, current); err != nil {
		return fmt.Errorf("update match thresholds: %w", err)
	}

	s.broker.Publish(ctx, notify.Event{
		Table:   notify.TableMatches,
		Op:      notify.OpUpdate,
		MatchID: m.ID,
	})

	return nil
}

func (s *LineupService) propagateSwap(ctx context.Context, matchID, teamID, homeTeamID, outgoingPlayerID, newPlayerID string) error {
	records, err := s.gameRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("list game records: %w", err)
	}

	changed := false
	for _, r := range records {
		if r.State() != game.StateUnscored {
			continue
		}

		if teamID == homeTeamID && r.HomePlayerID == outgoingPlayerID {
			r.HomePlayerID = newPlayerID
		} else if teamID != homeTeamID && r.AwayPlayerID == outgoingPlayerID {
			r.AwayPlayerID = newPlayerID
		} else {
			continue
		}

		r.UpdatedAt = s.now().UTC()
		if err := s.gameRepo.Update(ctx, r); err != nil {
			return fmt.Errorf("propagate swap into game %d: %w", r.GameNumber, err)
		}
		changed = true
	}

	if changed {
		s.broker.Publish(ctx, notify.Event{
			Table:   notify.TableGames,
			Op:      notify.OpUpdate,
			MatchID: matchID,
		})
	}

	return nil
}

func (s *LineupService) pendingSwapLineup(ctx context.Context, matchID, actingTeamID string) (match.Match, lineup.Lineup, error) {
	matchID = strings.TrimSpace(matchID)
	actingTeamID = strings.TrimSpace(actingTeamID)
	if matchID == "" || actingTeamID == "" {
		return match.Match{}, lineup.Lineup{}, fmt.Errorf("%w: match_id and team_id are required", ErrInvalidInput)
	}

	m, err := s.getMatch(ctx, matchID)
	if err != nil {
		return match.Match{}, lineup.Lineup{}, err
	}

	swappingTeamID := m.OpponentOf(actingTeamID)
	if swappingTeamID == "" {
		return match.Match{}, lineup.Lineup{}, fmt.Errorf("%w: team %s does not compete in match %s", ErrInvalidInput, actingTeamID, matchID)
	}

	swapping, exists, err := s.lineupRepo.GetByMatchAndTeam(ctx, matchID, swappingTeamID)
	if err != nil {
		return match.Match{}, lineup.Lineup{}, fmt.Errorf("get swapping lineup: %w", err)
	}
	if !exists || !swapping.SwapPending() {
		return match.Match{}, lineup.Lineup{}, fmt.Errorf("%w: no swap is pending for the opposing team", ErrPrecondition)
	}

	return m, swapping, nil
}

func (s *LineupService) confirmedGameCount(ctx context.Context, matchID, playerID string) (int, error) {
	records, err := s.gameRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("list game records: %w", err)
	}

	count := 0
	for _, r := range records {
		if r.State() != game.StateConfirmed {
			continue
		}
		if r.HomePlayerID == playerID || r.AwayPlayerID == playerID {
			count++
		}
	}

	return count, nil
}

func (s *LineupService) getMatch(ctx context.Context, matchID string) (match.Match, error) {
	m, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match by id: %w", err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	return m, nil
}

func resolveThresholdPair(format handicap.Format, home, away lineup.Lineup) (handicap.Thresholds, handicap.Thresholds, error) {
	differential := home.TotalHandicap() - away.TotalHandicap()

	homeThresholds, err := handicap.Resolve(format, differential)
	if err != nil {
		return handicap.Thresholds{}, handicap.Thresholds{}, fmt.Errorf("resolve home thresholds: %w", err)
	}
	awayThresholds, err := handicap.Resolve(format, -differential)
	if err != nil {
		return handicap.Thresholds{}, handicap.Thresholds{}, fmt.Errorf("resolve away thresholds: %w", err)
	}

	return homeThresholds, awayThresholds, nil
}

func clearSwap(item lineup.Lineup, at time.Time) lineup.Lineup {
	item.SwapPosition = nil
	item.SwapPlayerID = ""
	item.SwapHandicap = 0
	item.UpdatedAt = at
	return item
}

func validateSlots(inputs []SlotInput, teamSize int) ([]lineup.Slot, error) {
	if len(inputs) != teamSize {
		return nil, fmt.Errorf("%w: lineup must contain exactly %d players", ErrInvalidInput, teamSize)
	}

	seenPositions := make(map[int]struct{}, len(inputs))
	seenPlayers := make(map[string]struct{}, len(inputs))
	slots := make([]lineup.Slot, 0, len(inputs))
	for _, in := range inputs {
		playerID := strings.TrimSpace(in.PlayerID)
		if playerID == "" {
			return nil, fmt.Errorf("%w: player id cannot be empty", ErrInvalidInput)
		}
		if in.Position < 1 || in.Position > teamSize {
			return nil, fmt.Errorf("%w: position %d out of range 1..%d", ErrInvalidInput, in.Position, teamSize)
		}
		if _, dup := seenPositions[in.Position]; dup {
			return nil, fmt.Errorf("%w: duplicate position %d", ErrInvalidInput, in.Position)
		}
		if _, dup := seenPlayers[playerID]; dup {
			return nil, fmt.Errorf("%w: duplicate player id %s", ErrInvalidInput, playerID)
		}
		seenPositions[in.Position] = struct{}{}
		seenPlayers[playerID] = struct{}{}
		slots = append(slots, lineup.Slot{Position: in.Position, PlayerID: playerID, Handicap: in.Handicap})
	}

	return slots, nil
}
