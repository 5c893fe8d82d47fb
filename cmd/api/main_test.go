// Package main contains integration tests for the API server wiring.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/onmission/matchd/internal/auth"
	"github.com/onmission/matchd/internal/config"
	"github.com/onmission/matchd/internal/match"
	"github.com/onmission/matchd/internal/middleware"
	"github.com/onmission/matchd/internal/store"
)

const testJWTSecret = "test-secret-0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		DatabaseURL:        "memory",
		JWTSecret:          testJWTSecret,
		RateLimitPerMinute: 1000,
	}
}

// newTestHandler builds the full production middleware and routing chain
// over an in-memory store.
func newTestHandler(t *testing.T, repo store.Store) http.Handler {
	t.Helper()

	handler, err := buildHandler(testConfig(), serverDeps{
		repo:    repo,
		rlStore: middleware.NewInMemoryRateLimitStore(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("buildHandler failed: %v", err)
	}
	return handler
}

func accessToken(t *testing.T, profileID string) string {
	t.Helper()
	token, err := auth.NewJWTService(testJWTSecret).GenerateAccessToken(profileID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestServer_ServiceInfo(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var info map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode service info: %v", err)
	}
	if info["service"] != "matchd-api" {
		t.Errorf("service = %q, want matchd-api", info["service"])
	}
}

func TestServer_UnknownRouteReturnsErrorEnvelope(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr.Body); code != "not_found" {
		t.Errorf("error code = %q, want not_found", code)
	}
}

func TestServer_HealthEndpointsBypassAuth(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s without a token: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestServer_MetricsExposed(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	// Drive one request through the chain so the HTTP metrics have a sample.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Error("expected a non-empty metrics exposition")
	}
}

func TestServer_V1RequiresToken(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/match/rank", strings.NewReader("{}")))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rr.Code)
	}
}

func TestServer_AuthorizedRankFlow(t *testing.T) {
	repo := store.NewInMemoryStore()
	ctx := context.Background()

	profile := &match.Profile{
		ID:     "profile-1",
		Skills: map[string]match.Skill{"go": {ID: "go", Level: 4}},
	}
	if err := repo.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("seeding profile failed: %v", err)
	}
	assignment := &match.Assignment{
		ID:       "asg-1",
		Status:   match.StatusActive,
		OrgID:    "org-9",
		OrgName:  "Helping Hands",
		Title:    "Backend volunteer",
		MustHave: []match.SkillRequirement{{ID: "go", Level: 3}},
	}
	if err := repo.UpsertAssignment(ctx, assignment); err != nil {
		t.Fatalf("seeding assignment failed: %v", err)
	}

	handler := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/v1/match/rank", strings.NewReader(`{"threshold":0}`))
	req.Header.Set("Authorization", "Bearer "+accessToken(t, "profile-1"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Results []struct {
			AssignmentID string            `json:"assignment_id"`
			Assignment   *match.Assignment `json:"assignment"`
		} `json:"results"`
		Meta struct {
			PoolSize int `json:"pool_size"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode rank response: %v", err)
	}
	if resp.Meta.PoolSize != 1 {
		t.Errorf("pool_size = %d, want 1", resp.Meta.PoolSize)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Assignment == nil {
		t.Fatal("expected the redacted assignment attached to the result")
	}
	if resp.Results[0].Assignment.OrgName != "" || resp.Results[0].Assignment.OrgID != "" {
		t.Error("organization identity must be redacted in ranking results")
	}
}

func TestServer_RankWithoutProfileIsNotConfigured(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/match/rank", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+accessToken(t, "profile-unknown"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr.Body); code != "not_configured" {
		t.Errorf("error code = %q, want not_configured", code)
	}
}

// TestServer_GracefulShutdownDrainsInFlight starts the real handler on a
// local listener and verifies an in-flight ranking request completes while
// Shutdown is underway.
func TestServer_GracefulShutdownDrainsInFlight(t *testing.T) {
	handler := newTestHandler(t, store.NewInMemoryStore())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	server := &http.Server{Handler: handler}

	serverStopped := make(chan struct{})
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.Errorf("server error: %v", err)
		}
		close(serverStopped)
	}()

	// Hold the request body open so the handler blocks reading it, keeping
	// the request in flight when Shutdown begins.
	bodyReader, bodyWriter := io.Pipe()
	req, err := http.NewRequest(http.MethodPost, "http://"+ln.Addr().String()+"/v1/match/rank", bodyReader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken(t, "profile-1"))

	respCh := make(chan *http.Response, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Errorf("request error: %v", err)
			close(respCh)
			return
		}
		respCh <- resp
	}()

	// Let the request reach the handler, then start draining.
	time.Sleep(100 * time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownDone <- server.Shutdown(ctx)
	}()

	// Complete the in-flight request.
	time.Sleep(50 * time.Millisecond)
	if _, err := bodyWriter.Write([]byte("{}")); err != nil {
		t.Fatalf("failed to write request body: %v", err)
	}
	bodyWriter.Close()

	select {
	case resp, ok := <-respCh:
		if !ok {
			t.Fatal("request failed")
		}
		defer resp.Body.Close()
		// No profile is seeded for the requester; the request still must be
		// served to completion rather than dropped mid-drain.
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("in-flight request status = %d, want 404", resp.StatusCode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not complete")
	}

	select {
	case err := <-shutdownDone:
		if err != nil {
			t.Errorf("shutdown returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	select {
	case <-serverStopped:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// TestSignalContext_CancelledOnSIGTERM covers the shutdown trigger main
// uses: signal.NotifyContext rather than a raw signal channel.
func TestSignalContext_CancelledOnSIGTERM(t *testing.T) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
	}()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled on SIGTERM")
	}
}
