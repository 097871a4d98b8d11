package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/rackline/matchplay/internal/domain/user"
	notifymemory "github.com/rackline/matchplay/internal/infrastructure/notify/memory"
	"github.com/rackline/matchplay/internal/infrastructure/repository/memory"
	"github.com/rackline/matchplay/internal/platform/id"
	"github.com/rackline/matchplay/internal/platform/logging"
	"github.com/rackline/matchplay/internal/usecase"
)

const (
	homeToken = "home-token"
	awayToken = "away-token"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	matchRepo := memory.NewMatchRepository(memory.SeedMatches())
	lineupRepo := memory.NewLineupRepository(nil)
	gameRepo := memory.NewGameRepository()
	broker := notifymemory.NewBroker()
	logger := logging.NewNop()
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ids := id.NewRandomGenerator()

	lineupService := usecase.NewLineupService(matchRepo, lineupRepo, gameRepo, ids, broker)
	ledgerService := usecase.NewLedgerService(matchRepo, lineupRepo, gameRepo, ids, broker, logger)
	scoringService := usecase.NewScoringService(matchRepo, gameRepo, broker, logger)
	outcomeService := usecase.NewOutcomeService(matchRepo, gameRepo, broker, logger)
	tiebreakerService := usecase.NewTiebreakerService(matchRepo, lineupRepo, gameRepo, broker, logger)
	reconcileService, err := usecase.NewReconcileService(matchRepo, lineupRepo, gameRepo, broker, logger, 4)
	if err != nil {
		t.Fatalf("new reconcile service: %v", err)
	}
	t.Cleanup(reconcileService.Close)

	lineupService.SetLedgerPopulator(ledgerService)
	tiebreakerService.SetLedgerPopulator(ledgerService)
	scoringService.SetEvaluators(outcomeService, tiebreakerService)

	handler := NewHandler(lineupService, scoringService, outcomeService, tiebreakerService, reconcileService, slogger)
	verifier := staticVerifier{
		homeToken: user.Principal{UserID: "u-home", TeamID: memory.TeamIDCornerPocket},
		awayToken: user.Principal{UserID: "u-away", TeamID: memory.TeamIDSideRail},
	}

	return NewRouter(handler, verifier, slogger, nil, "job-secret")
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal %s %s response: %v (body=%s)", method, path, err, rec.Body.String())
	}

	return rec.Code, envelope
}

func lockLineupBody(prefix string, handicaps []int) string {
	slots := make([]string, 0, len(handicaps))
	for i, handicap := range handicaps {
		slots = append(slots, fmt.Sprintf(`{"position":%d,"playerId":"%s%d","handicap":%d}`, i+1, prefix, i+1, handicap))
	}
	return fmt.Sprintf(`{"slots":[%s],"teamModifier":0}`, strings.Join(slots, ","))
}

func TestRouterRejectsUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	code, envelope := doJSON(t, router, http.MethodGet, "/v1/matches/"+memory.MatchIDWeekOneThrees, "", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if envelope["error"] == nil {
		t.Fatalf("expected error envelope, got %v", envelope)
	}
}

func TestScoringFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	matchPath := "/v1/matches/" + memory.MatchIDWeekOneThrees

	code, _ := doJSON(t, router, http.MethodPut, matchPath+"/lineup", homeToken, lockLineupBody("h", []int{4, 5, 6}))
	if code != http.StatusOK {
		t.Fatalf("home lock status = %d, want 200", code)
	}
	code, _ = doJSON(t, router, http.MethodPut, matchPath+"/lineup", awayToken, lockLineupBody("a", []int{3, 4, 6}))
	if code != http.StatusOK {
		t.Fatalf("away lock status = %d, want 200", code)
	}

	// Both lineups locked: the match activates and thresholds resolve from
	// the +2 differential.
	code, envelope := doJSON(t, router, http.MethodGet, matchPath, homeToken, "")
	if code != http.StatusOK {
		t.Fatalf("get match status = %d, want 200", code)
	}
	data := envelope["data"].(map[string]any)
	if got := data["status"]; got != "in_progress" {
		t.Fatalf("match status = %v, want in_progress", got)
	}
	home := data["homeThresholds"].(map[string]any)
	if got := home["gamesToWin"]; got != float64(11) {
		t.Fatalf("home gamesToWin = %v, want 11", got)
	}

	code, envelope = doJSON(t, router, http.MethodGet, matchPath+"/games", homeToken, "")
	if code != http.StatusOK {
		t.Fatalf("list games status = %d, want 200", code)
	}
	if games := envelope["data"].([]any); len(games) != 18 {
		t.Fatalf("games = %d, want 18", len(games))
	}

	// Home proposes game 1; away sees it queued and confirms.
	code, envelope = doJSON(t, router, http.MethodPost, matchPath+"/games/1/propose", homeToken, `{"winnerPlayerId":"h1"}`)
	if code != http.StatusOK {
		t.Fatalf("propose status = %d, want 200 (%v)", code, envelope)
	}
	record := envelope["data"].(map[string]any)
	if got := record["state"]; got != "pending" {
		t.Fatalf("record state = %v, want pending", got)
	}

	code, envelope = doJSON(t, router, http.MethodGet, matchPath+"/queue", awayToken, "")
	if code != http.StatusOK {
		t.Fatalf("queue status = %d, want 200", code)
	}
	queue := envelope["data"].([]any)
	if len(queue) != 1 {
		t.Fatalf("away queue = %d items, want 1", len(queue))
	}
	item := queue[0].(map[string]any)
	if got := item["kind"]; got != "confirm_proposal" {
		t.Fatalf("queue kind = %v, want confirm_proposal", got)
	}

	code, envelope = doJSON(t, router, http.MethodPost, matchPath+"/games/1/confirm", awayToken, "")
	if code != http.StatusOK {
		t.Fatalf("confirm status = %d, want 200 (%v)", code, envelope)
	}
	record = envelope["data"].(map[string]any)
	if got := record["state"]; got != "confirmed" {
		t.Fatalf("record state = %v, want confirmed", got)
	}

	// A team cannot confirm its own proposal.
	code, _ = doJSON(t, router, http.MethodPost, matchPath+"/games/2/propose", homeToken, `{"winnerPlayerId":"h2"}`)
	if code != http.StatusOK {
		t.Fatalf("propose game 2 status = %d, want 200", code)
	}
	code, _ = doJSON(t, router, http.MethodPost, matchPath+"/games/2/confirm", homeToken, "")
	if code != http.StatusPreconditionFailed {
		t.Fatalf("self-confirm status = %d, want 412", code)
	}
}

func TestInternalReevaluateGuarded(t *testing.T) {
	router := newTestRouter(t)
	path := "/v1/internal/matches/" + memory.MatchIDWeekOneThrees + "/reevaluate"

	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unguarded status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-Internal-Job-Token", "job-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	// The seeded match is still scheduled, so the evaluator refuses it.
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("reevaluate status = %d, want 412", rec.Code)
	}
}
