package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/usecase"
)

type lockLineupRequest struct {
	Slots        []lockSlotRequest `json:"slots" validate:"required,min=1,dive"`
	TeamModifier int               `json:"teamModifier"`
}

type lockSlotRequest struct {
	Position int    `json:"position" validate:"required,min=1"`
	PlayerID string `json:"playerId" validate:"required"`
	Handicap int    `json:"handicap"`
}

type proposeSwapRequest struct {
	Position    int    `json:"position" validate:"required,min=1"`
	NewPlayerID string `json:"newPlayerId" validate:"required"`
	NewHandicap int    `json:"newHandicap"`
}

func (h *Handler) LockLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LockLineup")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req lockLineupRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	slots := make([]usecase.SlotInput, 0, len(req.Slots))
	for _, s := range req.Slots {
		slots = append(slots, usecase.SlotInput{Position: s.Position, PlayerID: s.PlayerID, Handicap: s.Handicap})
	}

	h.reconcileService.RecordIntent(matchID, principal.TeamID, notify.TableLineups)
	item, err := h.lineupService.Lock(ctx, usecase.LockLineupInput{
		MatchID:      matchID,
		TeamID:       principal.TeamID,
		Slots:        slots,
		TeamModifier: req.TeamModifier,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "lock lineup failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(item))
}

func (h *Handler) ListLineups(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLineups")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	items, err := h.lineupService.ListByMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list lineups failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dtos := make([]lineupDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, lineupToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, dtos)
}

func (h *Handler) ProposeSwap(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProposeSwap")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req proposeSwapRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.reconcileService.RecordIntent(matchID, principal.TeamID, notify.TableLineups)
	item, err := h.lineupService.ProposeSwap(ctx, usecase.SwapInput{
		MatchID:     matchID,
		TeamID:      principal.TeamID,
		Position:    req.Position,
		NewPlayerID: req.NewPlayerID,
		NewHandicap: req.NewHandicap,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "propose swap failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(item))
}

func (h *Handler) ApproveSwap(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApproveSwap")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	h.reconcileService.RecordIntent(matchID, principal.TeamID, notify.TableLineups)
	item, err := h.lineupService.ApproveSwap(ctx, matchID, principal.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "approve swap failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(item))
}

func (h *Handler) DenySwap(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DenySwap")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	h.reconcileService.RecordIntent(matchID, principal.TeamID, notify.TableLineups)
	item, err := h.lineupService.DenySwap(ctx, matchID, principal.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "deny swap failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(item))
}
