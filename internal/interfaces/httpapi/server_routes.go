package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedMatchRoutes(mux, handler, verifier)
	registerAuthorizedLineupRoutes(mux, handler, verifier)
	registerAuthorizedScoringRoutes(mux, handler, verifier)
	registerAuthorizedTiebreakerRoutes(mux, handler, verifier)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/matches/{matchID}/reevaluate", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ReevaluateMatch)))
}

func registerAuthorizedMatchRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/matches/{matchID}", RequireAuth(verifier, http.HandlerFunc(handler.GetMatch)))
	mux.Handle("GET /v1/matches/{matchID}/snapshot", RequireAuth(verifier, http.HandlerFunc(handler.GetSnapshot)))
	mux.Handle("GET /v1/matches/{matchID}/queue", RequireAuth(verifier, http.HandlerFunc(handler.GetQueue)))
	mux.Handle("GET /v1/matches/{matchID}/stream", RequireAuth(verifier, http.HandlerFunc(handler.StreamMatch)))
	mux.Handle("POST /v1/matches/{matchID}/verifications", RequireAuth(verifier, http.HandlerFunc(handler.SubmitVerification)))
}

func registerAuthorizedLineupRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/matches/{matchID}/lineups", RequireAuth(verifier, http.HandlerFunc(handler.ListLineups)))
	mux.Handle("PUT /v1/matches/{matchID}/lineup", RequireAuth(verifier, http.HandlerFunc(handler.LockLineup)))
	mux.Handle("POST /v1/matches/{matchID}/swaps", RequireAuth(verifier, http.HandlerFunc(handler.ProposeSwap)))
	mux.Handle("POST /v1/matches/{matchID}/swaps/approve", RequireAuth(verifier, http.HandlerFunc(handler.ApproveSwap)))
	mux.Handle("POST /v1/matches/{matchID}/swaps/deny", RequireAuth(verifier, http.HandlerFunc(handler.DenySwap)))
}

func registerAuthorizedScoringRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/matches/{matchID}/games", RequireAuth(verifier, http.HandlerFunc(handler.ListGames)))
	mux.Handle("POST /v1/matches/{matchID}/games/{gameNumber}/propose", RequireAuth(verifier, http.HandlerFunc(handler.ProposeWinner)))
	mux.Handle("POST /v1/matches/{matchID}/games/{gameNumber}/confirm", RequireAuth(verifier, http.HandlerFunc(handler.ConfirmGame)))
	mux.Handle("POST /v1/matches/{matchID}/games/{gameNumber}/vacate", RequireAuth(verifier, http.HandlerFunc(handler.RequestVacate)))
	mux.Handle("POST /v1/matches/{matchID}/games/{gameNumber}/vacate/confirm", RequireAuth(verifier, http.HandlerFunc(handler.ConfirmVacate)))
	mux.Handle("POST /v1/matches/{matchID}/games/{gameNumber}/vacate/decline", RequireAuth(verifier, http.HandlerFunc(handler.DeclineVacate)))
}

func registerAuthorizedTiebreakerRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("PUT /v1/matches/{matchID}/tiebreaker/order", RequireAuth(verifier, http.HandlerFunc(handler.SubmitTiebreakerOrder)))
	mux.Handle("GET /v1/matches/{matchID}/tiebreaker/results", RequireAuth(verifier, http.HandlerFunc(handler.ListTiebreakerResults)))
}
