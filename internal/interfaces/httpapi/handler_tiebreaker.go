package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/usecase"
)

type tiebreakerOrderRequest struct {
	Order []string `json:"order" validate:"required,min=1,dive,required"`
}

func (h *Handler) SubmitTiebreakerOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitTiebreakerOrder")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req tiebreakerOrderRequest
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
	item, err := h.tiebreakerService.SubmitOrder(ctx, matchID, principal.TeamID, req.Order)
	if err != nil {
		h.logger.WarnContext(ctx, "submit tiebreaker order failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lineupToDTO(item))
}

func (h *Handler) ListTiebreakerResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTiebreakerResults")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	results, err := h.tiebreakerService.PlayerResults(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list tiebreaker results failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]playerResultDTO, 0, len(results))
	for _, result := range results {
		items = append(items, playerResultDTO{
			PlayerID:   result.PlayerID,
			TeamID:     result.TeamID,
			GameNumber: result.GameNumber,
			Win:        result.Win,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
