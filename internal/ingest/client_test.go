package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onmission/matchd/internal/match"
	"github.com/onmission/matchd/internal/store"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "valid defaults", config: DefaultConfig("ws://feed.example/changes"), wantErr: nil},
		{name: "empty url", config: DefaultConfig(""), wantErr: ErrEmptyURL},
		{
			name:    "zero base delay",
			config:  Config{URL: "ws://x", MaxDelay: time.Second},
			wantErr: ErrInvalidDelay,
		},
		{
			name:    "max delay below base",
			config:  Config{URL: "ws://x", BaseDelay: time.Second, MaxDelay: time.Millisecond},
			wantErr: ErrInvalidMaxDelay,
		},
		{
			name:    "jitter above one",
			config:  Config{URL: "ws://x", BaseDelay: time.Millisecond, MaxDelay: time.Second, JitterFactor: 1.5},
			wantErr: ErrInvalidJitter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_RejectsInvalidConfig(t *testing.T) {
	if _, err := NewClient(DefaultConfig(""), nil, newTestLogger()); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestComputeBackoff_GrowsAndCaps(t *testing.T) {
	client, err := NewClient(Config{
		URL:       "ws://feed.example/changes",
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  1 * time.Second,
	}, nil, newTestLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	var prev time.Duration
	for attempt := int64(0); attempt < 8; attempt++ {
		atomic.StoreInt64(&client.reconnectCount, attempt)
		delay := client.computeBackoff()

		if delay < prev {
			t.Errorf("attempt %d: delay %v decreased from %v", attempt, delay, prev)
		}
		if delay > time.Second {
			t.Errorf("attempt %d: delay %v exceeds max", attempt, delay)
		}
		prev = delay
	}

	if prev != time.Second {
		t.Errorf("backoff should have reached the cap, got %v", prev)
	}
}

func TestComputeBackoff_JitterStaysInRange(t *testing.T) {
	client, err := NewClient(Config{
		URL:          "ws://feed.example/changes",
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		JitterFactor: 0.5,
	}, nil, newTestLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	// With 50% jitter the delay must stay within 75%..125% of the base.
	for i := 0; i < 100; i++ {
		delay := client.computeBackoff()
		if delay < 75*time.Millisecond || delay > 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside expected range", delay)
		}
	}
}

// newFeedServer starts a test WebSocket endpoint that sends the given
// events on every connection.
func newFeedServer(t *testing.T, events []*ChangeEvent) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, event := range events {
			data, err := EncodeEvent(event)
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}))
}

func TestClient_DeliversEventsToApplier(t *testing.T) {
	server := newFeedServer(t, []*ChangeEvent{
		{Kind: KindProfile, Op: OpUpsert, Profile: &match.Profile{ID: "profile-1"}},
		{Kind: KindAssignment, Op: OpUpsert, Assignment: &match.Assignment{ID: "asg-1", Status: match.StatusActive}},
	})
	defer server.Close()

	s := store.NewInMemoryStore()
	applier := NewApplier(s, nil, newTestLogger())

	config := Config{
		URL:       "ws" + server.URL[4:],
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  100 * time.Millisecond,
	}
	client, err := NewClient(config, applier.Handle, newTestLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = client.Run(ctx)

	if _, err := s.GetProfile(context.Background(), "profile-1"); err != nil {
		t.Errorf("profile not synced: %v", err)
	}
	if _, err := s.GetAssignment(context.Background(), "asg-1"); err != nil {
		t.Errorf("assignment not synced: %v", err)
	}
}

func TestClient_ReconnectsAfterServerClose(t *testing.T) {
	var connections int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&connections, 1)
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	config := Config{
		URL:       "ws" + server.URL[4:],
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
	}
	client, err := NewClient(config, nil, newTestLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = client.Run(ctx)

	if got := atomic.LoadInt32(&connections); got < 2 {
		t.Errorf("expected at least 2 connections (initial + reconnect), got %d", got)
	}
}

func TestClient_StopsOnContextCancel(t *testing.T) {
	server := newFeedServer(t, nil)
	defer server.Close()

	config := Config{
		URL:       "ws" + server.URL[4:],
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
	}
	client, err := NewClient(config, nil, newTestLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}
}
