package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/config"
	"github.com/printpal-io/printpal-go/internal/testsupport"
)

type submission struct {
	uid     string
	input   string
	quality string
	format  string
	prompt  string
}

// fakeService imitates the PrintPal API closely enough for command tests.
type fakeService struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	credits     int
	initial     string
	statuses    map[string]string
	formats     map[string]string
	qualities   map[string]string
	submissions []submission
	downloads   int
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	s := &fakeService{
		t:         t,
		credits:   100,
		initial:   printpal.StatusCompleted,
		statuses:  map[string]string{},
		formats:   map[string]string{},
		qualities: map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"status": "healthy"})
	})
	mux.HandleFunc("GET /api/pricing", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{
			"credits": map[string]any{
				"super":   map[string]any{"cost": 20, "description": "High detail", "resolution": "768 cubed", "estimated_time_seconds": 120},
				"default": map[string]any{"cost": 4, "description": "Fast", "resolution": "256 cubed", "estimated_time_seconds": 20},
				"super_texture": map[string]any{"cost": 40, "description": "Textured", "resolution": "768 cubed", "estimated_time_seconds": 300},
			},
			"supported_formats": []string{"stl", "glb", "obj"},
			"rate_limits":       map[string]any{"requests_per_minute": 50},
		})
	})
	mux.HandleFunc("GET /api/credits", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		respond(w, http.StatusOK, map[string]any{"credits": s.credits, "user_id": 7, "username": "maker"})
	})
	mux.HandleFunc("GET /api/usage", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{
			"api_key": map[string]any{
				"name":           "workshop",
				"total_requests": 12,
				"credits_used":   48,
				"last_used":      "2026-10-01T10:00:00Z",
			},
			"user":            map[string]any{"credits_remaining": 100},
			"recent_requests": []any{map[string]any{"endpoint": "/api/generate"}},
		})
	})
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/generate/{uid}/status", func(w http.ResponseWriter, r *http.Request) {
		uid := r.PathValue("uid")
		s.mu.Lock()
		status, ok := s.statuses[uid]
		quality, format := s.qualities[uid], s.formats[uid]
		s.mu.Unlock()
		if !ok {
			respond(w, http.StatusNotFound, map[string]any{"error": "Generation not found"})
			return
		}
		respond(w, http.StatusOK, map[string]any{
			"generation_uid": uid,
			"status":         status,
			"quality":        quality,
			"format":         format,
			"created_at":     "2026-10-01T10:00:00Z",
		})
	})
	mux.HandleFunc("GET /api/generate/{uid}/download", func(w http.ResponseWriter, r *http.Request) {
		uid := r.PathValue("uid")
		s.mu.Lock()
		status, ok := s.statuses[uid]
		format := s.formats[uid]
		s.mu.Unlock()
		if !ok {
			respond(w, http.StatusNotFound, map[string]any{"error": "Generation not found"})
			return
		}
		if status != printpal.StatusCompleted {
			respond(w, http.StatusBadRequest, map[string]any{"error": "Generation not completed", "status": status})
			return
		}
		respond(w, http.StatusOK, map[string]any{
			"download_url": s.server.URL + "/files/" + uid + "." + format,
			"format":       format,
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.downloads++
		s.mu.Unlock()
		_, _ = w.Write([]byte("solid " + r.PathValue("name")))
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakeService) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sub := submission{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Prompt  string `json:"prompt"`
			Quality string `json:"quality"`
			Format  string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond(w, http.StatusBadRequest, map[string]any{"error": "bad json"})
			return
		}
		sub = submission{input: "prompt", prompt: body.Prompt, quality: body.Quality, format: body.Format}
	} else {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			respond(w, http.StatusBadRequest, map[string]any{"error": "bad form"})
			return
		}
		sub = submission{input: "image", quality: r.FormValue("quality"), format: r.FormValue("format")}
	}
	cost := printpal.Quality(sub.quality).CreditCost()

	s.mu.Lock()
	if s.credits < cost {
		available := s.credits
		s.mu.Unlock()
		respond(w, http.StatusPaymentRequired, map[string]any{"error": "Insufficient credits", "credits_required": cost, "credits_available": available})
		return
	}
	s.credits -= cost
	sub.uid = fmt.Sprintf("gen-%04d", len(s.submissions)+1)
	s.submissions = append(s.submissions, sub)
	s.statuses[sub.uid] = s.initial
	s.formats[sub.uid] = sub.format
	s.qualities[sub.uid] = sub.quality
	remaining := s.credits
	s.mu.Unlock()

	respond(w, http.StatusOK, map[string]any{
		"success":                true,
		"generation_uid":         sub.uid,
		"status":                 printpal.StatusPending,
		"quality":                sub.quality,
		"credits_used":           cost,
		"credits_remaining":      remaining,
		"estimated_time_seconds": 20,
	})
}

func (s *fakeService) setStatus(uid, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[uid] = status
}

func (s *fakeService) submitted() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.submissions...)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type cliTestEnv struct {
	cfg        *config.Config
	service    *fakeService
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	service := newFakeService(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPIKey("pp_live_0123456789"),
		testsupport.WithBaseURL(service.server.URL),
		testsupport.WithPollInterval(1),
	)
	base := testsupport.BaseDir(cfg)
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv(printpal.APIKeyEnv, "")
	t.Setenv("PRINTPAL_BASE_URL", "")

	configPath := filepath.Join(base, "printpal.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, service: service, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[api]
api_key = %q
base_url = %q

[generation]
poll_interval = %d

[paths]
output_dir = %q
state_dir = %q

[logging]
level = "warn"
`,
		cfg.API.APIKey,
		cfg.API.BaseURL,
		cfg.Generation.PollInterval,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
