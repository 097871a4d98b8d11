package leaguehq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rackline/matchplay/internal/platform/logging"
	"github.com/rackline/matchplay/internal/platform/resilience"
	"github.com/rackline/matchplay/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	return client, server
}

func TestVerifyAccessTokenCachesPrincipal(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/tokens/introspect" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("authorization = %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":true,"user_id":"u1","email":"cap@example.com","team_id":"corner-pocket"}`))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		principal, err := client.VerifyAccessToken(ctx, "token-1")
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		if principal.UserID != "u1" || principal.TeamID != "corner-pocket" {
			t.Fatalf("principal = %+v", principal)
		}
	}

	if calls.Load() != 1 {
		t.Fatalf("backend calls = %d, want 1", calls.Load())
	}
}

func TestVerifyAccessTokenRejections(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer revoked":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"active":false}`))
		}
	})

	ctx := context.Background()
	if _, err := client.VerifyAccessToken(ctx, "revoked"); !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("revoked token err = %v, want ErrUnauthorized", err)
	}
	if _, err := client.VerifyAccessToken(ctx, "inactive"); !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("inactive token err = %v, want ErrUnauthorized", err)
	}
	if _, err := client.VerifyAccessToken(ctx, "   "); !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("blank token err = %v, want ErrUnauthorized", err)
	}
}

func TestCircuitOpensOnBackendOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:  server.URL,
		Timeout:  time.Second,
		CacheTTL: time.Minute,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		token := "token-" + string(rune('a'+i))
		if _, err := client.VerifyAccessToken(ctx, token); err == nil {
			t.Fatalf("verify %d succeeded against a failing backend", i)
		}
	}

	// Threshold reached: the breaker now rejects without calling out.
	if _, err := client.VerifyAccessToken(ctx, "token-z"); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("err = %v, want ErrDependencyUnavailable", err)
	}
	if state := client.breaker.State(); state != resilience.CircuitStateOpen {
		t.Fatalf("breaker state = %s, want open", state)
	}
}
