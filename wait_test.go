package printpal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

// scriptedStatus serves statuses in order and repeats the last one.
func scriptedStatus(t *testing.T, api *testAPI, uid string, statuses ...map[string]any) {
	t.Helper()
	var mu sync.Mutex
	next := 0
	api.handle("GET /api/generate/"+uid+"/status", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		body := statuses[min(next, len(statuses)-1)]
		next++
		mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	})
}

func TestWaitForCompletionReturnsCompletedStatus(t *testing.T) {
	api := newTestAPI(t)
	scriptedStatus(t, api, "gen-1",
		map[string]any{"generation_uid": "gen-1", "status": "pending", "quality": "default"},
		map[string]any{"generation_uid": "gen-1", "status": "processing", "quality": "default"},
		map[string]any{"generation_uid": "gen-1", "status": "completed", "quality": "default"},
	)
	clock := newFakeClock()
	client := api.client(clock.options()...)

	var seen []string
	status, err := client.WaitForCompletion(context.Background(), "gen-1", WaitOptions{
		PollInterval: 2 * time.Second,
		OnStatus: func(s GenerationStatus) error {
			seen = append(seen, s.Status)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("WaitForCompletion returned error: %v", err)
	}
	if !status.IsCompleted() {
		t.Fatalf("expected completed status, got %+v", status)
	}
	if len(seen) != 3 || seen[0] != "pending" || seen[2] != "completed" {
		t.Fatalf("unexpected callbacks: %v", seen)
	}
	if len(clock.sleeps) != 2 || clock.sleeps[0] != 2*time.Second {
		t.Fatalf("unexpected sleeps: %v", clock.sleeps)
	}
}

func TestWaitForCompletionFailedGeneration(t *testing.T) {
	api := newTestAPI(t)
	scriptedStatus(t, api, "gen-bad",
		map[string]any{"status": "processing", "quality": "high"},
		map[string]any{"status": "failed", "quality": "high", "external_state": "mesh_error"},
	)
	clock := newFakeClock()

	_, err := api.client(clock.options()...).WaitForCompletion(context.Background(), "gen-bad", WaitOptions{})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindGeneration {
		t.Fatalf("expected generation error, got %v", err)
	}
	if apiErr.GenerationUID != "gen-bad" {
		t.Fatalf("expected generation uid on error, got %+v", apiErr)
	}
	if stringField(apiErr.Response, "external_state") != "mesh_error" {
		t.Fatalf("expected raw status on error, got %v", apiErr.Response)
	}
	if IsRetriable(err) {
		t.Fatal("generation failures are not retriable")
	}
}

func TestWaitForCompletionDerivesTimeoutFromQuality(t *testing.T) {
	cases := []struct {
		quality string
		polls   int64
	}{
		{quality: "default", polls: 25},   // 2m / 5s + 1
		{quality: "superplus", polls: 97}, // 8m / 5s + 1
		{quality: "", polls: 25},          // missing quality uses default
		{quality: "mystery", polls: 121},  // unknown quality uses 10m
	}
	for _, tc := range cases {
		api := newTestAPI(t)
		scriptedStatus(t, api, "gen-slow", map[string]any{"status": "processing", "quality": tc.quality})
		clock := newFakeClock()

		_, err := api.client(clock.options()...).WaitForCompletion(context.Background(), "gen-slow", WaitOptions{})
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Kind != KindTimeout || apiErr.GenerationUID != "gen-slow" {
			t.Fatalf("%q: expected timeout error with uid, got %v", tc.quality, err)
		}
		if got := api.count("GET /api/generate/gen-slow/status"); got != tc.polls {
			t.Fatalf("%q: expected %d polls, got %d", tc.quality, tc.polls, got)
		}
		if len(clock.sleeps) != int(tc.polls-1) {
			t.Fatalf("%q: expected %d sleeps, got %d", tc.quality, tc.polls-1, len(clock.sleeps))
		}
	}
}

func TestWaitForCompletionExplicitTimeout(t *testing.T) {
	api := newTestAPI(t)
	scriptedStatus(t, api, "gen-x", map[string]any{"status": "pending", "quality": "superplus_texture"})
	clock := newFakeClock()

	_, err := api.client(clock.options()...).WaitForCompletion(context.Background(), "gen-x", WaitOptions{
		PollInterval: 5 * time.Second,
		Timeout:      12 * time.Second,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if got := api.count("GET /api/generate/gen-x/status"); got != 4 {
		t.Fatalf("expected 4 polls, got %d", got)
	}
}

func TestWaitForCompletionCallbackAborts(t *testing.T) {
	api := newTestAPI(t)
	scriptedStatus(t, api, "gen-cb", map[string]any{"status": "processing"})
	clock := newFakeClock()
	stop := errors.New("stop waiting")

	_, err := api.client(clock.options()...).WaitForCompletion(context.Background(), "gen-cb", WaitOptions{
		OnStatus: func(GenerationStatus) error { return stop },
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", clock.sleeps)
	}
}

func TestWaitForCompletionHonoursCancellation(t *testing.T) {
	api := newTestAPI(t)
	scriptedStatus(t, api, "gen-c", map[string]any{"status": "processing"})
	ctx, cancel := context.WithCancel(context.Background())

	client := api.client(WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))
	_, err := client.WaitForCompletion(ctx, "gen-c", WaitOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestGetStatusNotFound(t *testing.T) {
	api := newTestAPI(t)
	api.handle("GET /api/generate/missing/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Generation not found"})
	})

	_, err := api.client().GetStatus(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := api.client().GetStatus(context.Background(), " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty uid, got %v", err)
	}
}

func TestGetStatusFillsMissingUID(t *testing.T) {
	api := newTestAPI(t)
	scriptedStatus(t, api, "gen-7", map[string]any{"status": "completed"})

	status, err := api.client().GetStatus(context.Background(), "gen-7")
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if status.GenerationUID != "gen-7" || !status.IsTerminal() {
		t.Fatalf("unexpected status: %+v", status)
	}
}
