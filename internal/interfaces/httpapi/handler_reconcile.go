package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/rackline/matchplay/internal/usecase"
)

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSnapshot")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	snapshot, err := h.reconcileService.Refetch(ctx, matchID, principal.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "get snapshot failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, snapshotToDTO(snapshot))
}

func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetQueue")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	snapshot, err := h.reconcileService.Refetch(ctx, matchID, principal.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "get queue failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, queueToDTO(snapshot.Queue))
}

// StreamMatch serves a server-sent-event stream of reconciled snapshots for
// one team's live view of a match. The stream begins with the current state
// and then carries one snapshot per relevant change.
func (h *Handler) StreamMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamMatch")
	defer span.End()

	principal, err := teamPrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: streaming is not supported by this connection", usecase.ErrInvalidInput))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	session, err := h.reconcileService.Open(ctx, matchID, principal.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "open session failed", "match_id", matchID, "team_id", principal.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}
	defer session.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-session.Updates():
			payload, err := sonic.Marshal(snapshotToDTO(snapshot))
			if err != nil {
				h.logger.ErrorContext(ctx, "marshal snapshot failed", "match_id", matchID, "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
