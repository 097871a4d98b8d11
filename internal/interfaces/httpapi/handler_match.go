package httpapi

import (
	"net/http"
	"strings"

	"github.com/rackline/matchplay/internal/domain/notify"
)

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	m, err := h.outcomeService.GetMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(m))
}

func (h *Handler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitVerification")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	h.reconcileService.RecordIntent(matchID, principal.TeamID, notify.TableMatches)
	m, err := h.outcomeService.SubmitVerification(ctx, matchID, principal.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "submit verification failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(m))
}

// ReevaluateMatch re-runs the outcome evaluator over stored confirmations.
// Exposed for internal repair jobs only; the evaluator is idempotent, so an
// extra run can correct a missed transition but never invent one.
func (h *Handler) ReevaluateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReevaluateMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	outcome, err := h.outcomeService.EvaluateMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "reevaluate match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}
