package printpal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	mux    *http.ServeMux
	hits   sync.Map // pattern -> *atomic.Int64
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{t: t, mux: http.NewServeMux()}
	api.server = httptest.NewServer(api.mux)
	t.Cleanup(api.server.Close)
	return api
}

// handle registers fn under pattern and counts hits per pattern.
func (a *testAPI) handle(pattern string, fn http.HandlerFunc) {
	counter := &atomic.Int64{}
	a.hits.Store(pattern, counter)
	a.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		fn(w, r)
	})
}

func (a *testAPI) count(pattern string) int64 {
	if v, ok := a.hits.Load(pattern); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

func (a *testAPI) client(opts ...Option) *Client {
	a.t.Helper()
	all := append([]Option{WithBaseURL(a.server.URL)}, opts...)
	client, err := New("pp_test_key", all...)
	if err != nil {
		a.t.Fatalf("New returned error: %v", err)
	}
	a.t.Cleanup(func() { _ = client.Close() })
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeClock advances only when the workflow sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) options() []Option {
	return []Option{WithClock(c.Now), WithSleeper(c.Sleep)}
}
