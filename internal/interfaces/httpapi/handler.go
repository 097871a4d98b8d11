package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rackline/matchplay/internal/domain/game"
	"github.com/rackline/matchplay/internal/domain/handicap"
	"github.com/rackline/matchplay/internal/domain/lineup"
	"github.com/rackline/matchplay/internal/domain/match"
	"github.com/rackline/matchplay/internal/domain/user"
	"github.com/rackline/matchplay/internal/usecase"
)

type Handler struct {
	lineupService     *usecase.LineupService
	scoringService    *usecase.ScoringService
	outcomeService    *usecase.OutcomeService
	tiebreakerService *usecase.TiebreakerService
	reconcileService  *usecase.ReconcileService
	logger            *slog.Logger
	validator         *validator.Validate
}

func NewHandler(
	lineupService *usecase.LineupService,
	scoringService *usecase.ScoringService,
	outcomeService *usecase.OutcomeService,
	tiebreakerService *usecase.TiebreakerService,
	reconcileService *usecase.ReconcileService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		lineupService:     lineupService,
		scoringService:    scoringService,
		outcomeService:    outcomeService,
		tiebreakerService: tiebreakerService,
		reconcileService:  reconcileService,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// teamPrincipal resolves the authenticated caller and requires a team
// attachment: every scoring operation acts on behalf of one of the two
// competing teams.
func teamPrincipal(ctx context.Context) (user.Principal, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return user.Principal{}, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(principal.TeamID) == "" {
		return user.Principal{}, fmt.Errorf("%w: caller is not attached to a team", usecase.ErrUnauthorized)
	}

	return principal, nil
}

func gameRefFromRequest(r *http.Request, teamID string) (usecase.GameRef, error) {
	matchID := strings.TrimSpace(r.PathValue("matchID"))

	gameNumber, err := strconv.Atoi(strings.TrimSpace(r.PathValue("gameNumber")))
	if err != nil || gameNumber < 1 {
		return usecase.GameRef{}, fmt.Errorf("%w: game number must be a positive integer", usecase.ErrInvalidInput)
	}

	tiebreaker := false
	if raw := r.URL.Query().Get("tiebreaker"); raw != "" {
		tiebreaker, err = strconv.ParseBool(raw)
		if err != nil {
			return usecase.GameRef{}, fmt.Errorf("%w: tiebreaker must be a boolean", usecase.ErrInvalidInput)
		}
	}

	return usecase.GameRef{
		MatchID:    matchID,
		TeamID:     teamID,
		GameNumber: gameNumber,
		Tiebreaker: tiebreaker,
	}, nil
}

type thresholdsDTO struct {
	GamesToWin  int  `json:"gamesToWin"`
	GamesToTie  *int `json:"gamesToTie,omitempty"`
	GamesToLose int  `json:"gamesToLose"`
}

type matchDTO struct {
	ID              string         `json:"id"`
	SeasonID        string         `json:"seasonId"`
	LeagueID        string         `json:"leagueId"`
	HomeTeamID      string         `json:"homeTeamId"`
	AwayTeamID      string         `json:"awayTeamId"`
	Format          string         `json:"format"`
	GameType        string         `json:"gameType"`
	HandicapVariant string         `json:"handicapVariant,omitempty"`
	GoldenBreakWins bool           `json:"goldenBreakWins"`
	Status          string         `json:"status"`
	HomeThresholds  *thresholdsDTO `json:"homeThresholds,omitempty"`
	AwayThresholds  *thresholdsDTO `json:"awayThresholds,omitempty"`
	HomeVerified    bool           `json:"homeVerified"`
	AwayVerified    bool           `json:"awayVerified"`
	WinnerTeamID    string         `json:"winnerTeamId,omitempty"`
	CompletedAt     string         `json:"completedAt,omitempty"`
	ScheduledAt     string         `json:"scheduledAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

type slotDTO struct {
	Position int    `json:"position"`
	PlayerID string `json:"playerId"`
	Handicap int    `json:"handicap"`
}

type lineupDTO struct {
	MatchID          string    `json:"matchId"`
	TeamID           string    `json:"teamId"`
	Slots            []slotDTO `json:"slots"`
	TeamModifier     int       `json:"teamModifier"`
	Locked           bool      `json:"locked"`
	LockedAt         string    `json:"lockedAt,omitempty"`
	SwapPosition     *int      `json:"swapPosition,omitempty"`
	SwapPlayerID     string    `json:"swapPlayerId,omitempty"`
	SwapHandicap     int       `json:"swapHandicap,omitempty"`
	TiebreakerOrder  []string  `json:"tiebreakerOrder,omitempty"`
	TiebreakerLocked bool      `json:"tiebreakerLocked"`
	UpdatedAt        string    `json:"updatedAt"`
}

type gameDTO struct {
	GameNumber        int    `json:"gameNumber"`
	Tiebreaker        bool   `json:"tiebreaker"`
	HomePlayerID      string `json:"homePlayerId"`
	AwayPlayerID      string `json:"awayPlayerId"`
	HomePosition      int    `json:"homePosition"`
	AwayPosition      int    `json:"awayPosition"`
	HomeAction        string `json:"homeAction"`
	AwayAction        string `json:"awayAction"`
	State             string `json:"state"`
	WinnerPlayerID    string `json:"winnerPlayerId,omitempty"`
	WinnerTeamID      string `json:"winnerTeamId,omitempty"`
	ConfirmedByHome   bool   `json:"confirmedByHome"`
	ConfirmedByAway   bool   `json:"confirmedByAway"`
	VacateRequestedBy string `json:"vacateRequestedBy,omitempty"`
	BreakAndRun       bool   `json:"breakAndRun"`
	GoldenBreak       bool   `json:"goldenBreak"`
	ConfirmedAt       string `json:"confirmedAt,omitempty"`
	UpdatedAt         string `json:"updatedAt"`
}

type queueItemDTO struct {
	Kind           string `json:"kind"`
	MatchID        string `json:"matchId"`
	GameNumber     int    `json:"gameNumber,omitempty"`
	Tiebreaker     bool   `json:"tiebreaker"`
	RequestedBy    string `json:"requestedBy"`
	WinnerPlayerID string `json:"winnerPlayerId,omitempty"`
	WinnerTeamID   string `json:"winnerTeamId,omitempty"`
	SwapPosition   int    `json:"swapPosition,omitempty"`
	SwapPlayerID   string `json:"swapPlayerId,omitempty"`
}

type snapshotDTO struct {
	Match       matchDTO       `json:"match"`
	Lineups     []lineupDTO    `json:"lineups"`
	Games       []gameDTO      `json:"games"`
	Queue       []queueItemDTO `json:"queue"`
	RefreshedAt string         `json:"refreshedAt"`
}

type playerResultDTO struct {
	PlayerID   string `json:"playerId"`
	TeamID     string `json:"teamId"`
	GameNumber int    `json:"gameNumber"`
	Win        bool   `json:"win"`
}

func matchToDTO(v match.Match) matchDTO {
	dto := matchDTO{
		ID:              v.ID,
		SeasonID:        v.SeasonID,
		LeagueID:        v.LeagueID,
		HomeTeamID:      v.HomeTeamID,
		AwayTeamID:      v.AwayTeamID,
		Format:          string(v.Settings.Format),
		GameType:        v.Settings.GameType,
		HandicapVariant: v.Settings.HandicapVariant,
		GoldenBreakWins: v.Settings.GoldenBreakWins,
		Status:          v.Status,
		HomeThresholds:  thresholdsToDTO(v.HomeThresholds),
		AwayThresholds:  thresholdsToDTO(v.AwayThresholds),
		HomeVerified:    v.HomeVerified,
		AwayVerified:    v.AwayVerified,
		WinnerTeamID:    v.WinnerTeamID,
		ScheduledAt:     v.ScheduledAt.UTC().Format(time.RFC3339),
		UpdatedAt:       v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.CompletedAt != nil {
		dto.CompletedAt = v.CompletedAt.UTC().Format(time.RFC3339)
	}

	return dto
}

func thresholdsToDTO(v *handicap.Thresholds) *thresholdsDTO {
	if v == nil {
		return nil
	}

	dto := thresholdsDTO{GamesToWin: v.GamesToWin, GamesToLose: v.GamesToLose}
	if v.GamesToTie != nil {
		tie := *v.GamesToTie
		dto.GamesToTie = &tie
	}

	return &dto
}

func lineupToDTO(v lineup.Lineup) lineupDTO {
	slots := make([]slotDTO, 0, len(v.Slots))
	for _, s := range v.Slots {
		slots = append(slots, slotDTO{Position: s.Position, PlayerID: s.PlayerID, Handicap: s.Handicap})
	}

	dto := lineupDTO{
		MatchID:          v.MatchID,
		TeamID:           v.TeamID,
		Slots:            slots,
		TeamModifier:     v.TeamModifier,
		Locked:           v.Locked,
		SwapPlayerID:     v.SwapPlayerID,
		SwapHandicap:     v.SwapHandicap,
		TiebreakerOrder:  append([]string(nil), v.TiebreakerOrder...),
		TiebreakerLocked: v.TiebreakerLocked,
		UpdatedAt:        v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.LockedAt != nil {
		dto.LockedAt = v.LockedAt.UTC().Format(time.RFC3339)
	}
	if v.SwapPosition != nil {
		position := *v.SwapPosition
		dto.SwapPosition = &position
	}

	return dto
}

func gameToDTO(v game.Record) gameDTO {
	dto := gameDTO{
		GameNumber:        v.GameNumber,
		Tiebreaker:        v.IsTiebreaker,
		HomePlayerID:      v.HomePlayerID,
		AwayPlayerID:      v.AwayPlayerID,
		HomePosition:      v.HomePosition,
		AwayPosition:      v.AwayPosition,
		HomeAction:        v.HomeAction,
		AwayAction:        v.AwayAction,
		State:             string(v.State()),
		WinnerPlayerID:    v.WinnerPlayerID,
		WinnerTeamID:      v.WinnerTeamID,
		ConfirmedByHome:   v.ConfirmedByHome,
		ConfirmedByAway:   v.ConfirmedByAway,
		VacateRequestedBy: v.VacateRequestedBy,
		BreakAndRun:       v.BreakAndRun,
		GoldenBreak:       v.GoldenBreak,
		UpdatedAt:         v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.ConfirmedAt != nil {
		dto.ConfirmedAt = v.ConfirmedAt.UTC().Format(time.RFC3339)
	}

	return dto
}

func gamesToDTO(records []game.Record) []gameDTO {
	items := make([]gameDTO, 0, len(records))
	for _, r := range records {
		items = append(items, gameToDTO(r))
	}
	return items
}

func queueToDTO(queue []usecase.ConfirmationQueueItem) []queueItemDTO {
	items := make([]queueItemDTO, 0, len(queue))
	for _, q := range queue {
		items = append(items, queueItemDTO{
			Kind:           string(q.Kind),
			MatchID:        q.MatchID,
			GameNumber:     q.GameNumber,
			Tiebreaker:     q.Tiebreaker,
			RequestedBy:    q.RequestedBy,
			WinnerPlayerID: q.WinnerPlayerID,
			WinnerTeamID:   q.WinnerTeamID,
			SwapPosition:   q.SwapPosition,
			SwapPlayerID:   q.SwapPlayerID,
		})
	}
	return items
}

func snapshotToDTO(snapshot usecase.Snapshot) snapshotDTO {
	lineups := make([]lineupDTO, 0, len(snapshot.Lineups))
	for _, l := range snapshot.Lineups {
		lineups = append(lineups, lineupToDTO(l))
	}

	return snapshotDTO{
		Match:       matchToDTO(snapshot.Match),
		Lineups:     lineups,
		Games:       gamesToDTO(snapshot.Games),
		Queue:       queueToDTO(snapshot.Queue),
		RefreshedAt: snapshot.RefreshedAt.UTC().Format(time.RFC3339),
	}
}
