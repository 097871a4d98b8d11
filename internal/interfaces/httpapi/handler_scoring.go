package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/usecase"
)

type proposeWinnerRequest struct {
	WinnerPlayerID string `json:"winnerPlayerId" validate:"required"`
	BreakAndRun    bool   `json:"breakAndRun"`
	GoldenBreak    bool   `json:"goldenBreak"`
}

func (h *Handler) ProposeWinner(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProposeWinner")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ref, err := gameRefFromRequest(r, principal.TeamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req proposeWinnerRequest
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

	h.reconcileService.RecordIntent(ref.MatchID, principal.TeamID, notify.TableGames)
	record, err := h.scoringService.ProposeWinner(ctx, usecase.ProposeWinnerInput{
		MatchID:        ref.MatchID,
		TeamID:         ref.TeamID,
		GameNumber:     ref.GameNumber,
		Tiebreaker:     ref.Tiebreaker,
		WinnerPlayerID: req.WinnerPlayerID,
		BreakAndRun:    req.BreakAndRun,
		GoldenBreak:    req.GoldenBreak,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "propose winner failed",
			"match_id", ref.MatchID, "team_id", principal.TeamID, "game_number", ref.GameNumber, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(record))
}

func (h *Handler) ConfirmGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConfirmGame")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ref, err := gameRefFromRequest(r, principal.TeamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.reconcileService.RecordIntent(ref.MatchID, principal.TeamID, notify.TableGames)
	record, err := h.scoringService.ConfirmGame(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "confirm game failed",
			"match_id", ref.MatchID, "team_id", principal.TeamID, "game_number", ref.GameNumber, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(record))
}

func (h *Handler) RequestVacate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RequestVacate")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ref, err := gameRefFromRequest(r, principal.TeamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.reconcileService.RecordIntent(ref.MatchID, principal.TeamID, notify.TableGames)
	record, err := h.scoringService.RequestVacate(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "request vacate failed",
			"match_id", ref.MatchID, "team_id", principal.TeamID, "game_number", ref.GameNumber, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(record))
}

func (h *Handler) ConfirmVacate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConfirmVacate")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ref, err := gameRefFromRequest(r, principal.TeamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.reconcileService.RecordIntent(ref.MatchID, principal.TeamID, notify.TableGames)
	record, err := h.scoringService.ConfirmVacate(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "confirm vacate failed",
			"match_id", ref.MatchID, "team_id", principal.TeamID, "game_number", ref.GameNumber, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(record))
}

func (h *Handler) DeclineVacate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeclineVacate")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ref, err := gameRefFromRequest(r, principal.TeamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.reconcileService.RecordIntent(ref.MatchID, principal.TeamID, notify.TableGames)
	record, err := h.scoringService.DeclineVacate(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "decline vacate failed",
			"match_id", ref.MatchID, "team_id", principal.TeamID, "game_number", ref.GameNumber, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(record))
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGames")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	records, err := h.scoringService.ListGames(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list games failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gamesToDTO(records))
}
