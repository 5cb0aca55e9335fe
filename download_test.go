package printpal

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

const modelBytes = "solid printpal\nendsolid printpal\n"

// completedAPI serves a completed generation whose artifact is format.
func completedAPI(t *testing.T, uid, format string) *testAPI {
	t.Helper()
	api := newTestAPI(t)
	api.handle("GET /api/generate/"+uid+"/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"generation_uid": uid, "status": "completed", "quality": "default"})
	})
	api.handle("GET /api/generate/"+uid+"/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"download_url": api.server.URL + "/artifacts/" + uid,
			"format":       format,
			"expires_in":   3600,
			"status":       "completed",
		})
	})
	api.handle("GET /artifacts/"+uid, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "" {
			t.Errorf("api key must not be sent to artifact storage")
		}
		_, _ = w.Write([]byte(modelBytes))
	})
	return api
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestDownloadCorrectsMismatchedExtension(t *testing.T) {
	api := completedAPI(t, "abcdef123456", "glb")
	dir := t.TempDir()

	path, err := api.client().Download(context.Background(), "abcdef123456", filepath.Join(dir, "model.stl"))
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if want := filepath.Join(dir, "model.glb"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	if readFile(t, path) != modelBytes {
		t.Fatal("unexpected artifact contents")
	}
	if _, err := os.Stat(filepath.Join(dir, "model.stl")); !os.IsNotExist(err) {
		t.Fatalf("mislabeled file should not exist, stat err=%v", err)
	}
}

func TestDownloadOutputPathVariants(t *testing.T) {
	api := completedAPI(t, "abcdef123456", "obj")
	client := api.client()
	dir := t.TempDir()

	cases := []struct {
		name   string
		output string
		want   string
	}{
		{name: "matching extension", output: filepath.Join(dir, "part.OBJ"), want: filepath.Join(dir, "part.OBJ")},
		{name: "no extension", output: filepath.Join(dir, "part"), want: filepath.Join(dir, "part.obj")},
		{name: "directory", output: dir, want: filepath.Join(dir, "printpal_model_abcdef12.obj")},
		{name: "nested new dir", output: filepath.Join(dir, "a", "b", "m.obj"), want: filepath.Join(dir, "a", "b", "m.obj")},
		{name: "new dir with trailing separator", output: filepath.Join(dir, "fresh") + string(filepath.Separator), want: filepath.Join(dir, "fresh", "printpal_model_abcdef12.obj")},
	}
	for _, tc := range cases {
		path, err := client.Download(context.Background(), "abcdef123456", tc.output)
		if err != nil {
			t.Fatalf("%s: Download returned error: %v", tc.name, err)
		}
		if path != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, path)
		}
		if readFile(t, path) != modelBytes {
			t.Fatalf("%s: unexpected contents", tc.name)
		}
	}
}

func TestDownloadDefaultNameInWorkingDirectory(t *testing.T) {
	api := completedAPI(t, "abcdef123456", "stl")
	dir := t.TempDir()
	t.Chdir(dir)

	path, err := api.client().Download(context.Background(), "abcdef123456", "")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if path != "printpal_model_abcdef12.stl" {
		t.Fatalf("unexpected default name %s", path)
	}
	if readFile(t, filepath.Join(dir, path)) != modelBytes {
		t.Fatal("unexpected contents")
	}
}

func TestDownloadRefusedBeforeCompletion(t *testing.T) {
	api := newTestAPI(t)
	api.handle("GET /api/generate/gen-busy/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Generation not completed", "status": "processing"})
	})
	api.handle("GET /api/generate/gen-echo/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "processing", "download_url": api.server.URL + "/artifacts/gen-echo"})
	})
	api.handle("GET /artifacts/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(modelBytes))
	})
	client := api.client()
	dir := t.TempDir()

	for _, uid := range []string{"gen-busy", "gen-echo"} {
		_, err := client.Download(context.Background(), uid, filepath.Join(dir, uid+".stl"))
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", uid, err)
		}
	}
	if got := api.count("GET /artifacts/"); got != 0 {
		t.Fatalf("artifact should never be fetched, got %d requests", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files written, found %d", len(entries))
	}
}

func TestDownloadMissingURL(t *testing.T) {
	api := newTestAPI(t)
	api.handle("GET /api/generate/gen-nourl/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"format": "stl"})
	})
	_, err := api.client().GetDownloadInfo(context.Background(), "gen-nourl")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestDownloadRejectsUnknownFormat(t *testing.T) {
	for _, format := range []string{"../../escape", "stl/evil", "exe"} {
		api := completedAPI(t, "gen-odd", format)
		dir := t.TempDir()
		_, err := api.client().Download(context.Background(), "gen-odd", dir)
		if !errors.Is(err, ErrGeneration) {
			t.Fatalf("%q: expected generation error, got %v", format, err)
		}
		if got := api.count("GET /artifacts/gen-odd"); got != 0 {
			t.Fatalf("%q: artifact should not be fetched, got %d requests", format, got)
		}
		if entries, _ := os.ReadDir(dir); len(entries) != 0 {
			t.Fatalf("%q: expected no files written, found %d", format, len(entries))
		}
	}
}

func TestDownloadArtifactFailure(t *testing.T) {
	api := newTestAPI(t)
	api.handle("GET /api/generate/gen-gone/download", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"download_url": api.server.URL + "/expired", "format": "stl"})
	})
	api.handle("GET /expired", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	})
	dir := t.TempDir()

	_, err := api.client().Download(context.Background(), "gen-gone", filepath.Join(dir, "m.stl"))
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected artifact error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "m.stl")); !os.IsNotExist(statErr) {
		t.Fatal("no file should be written on failure")
	}
}

func TestGenerateAndDownloadInfersFormat(t *testing.T) {
	api := completedAPI(t, "gen-flow", "obj")
	api.handle("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if got := r.FormValue("format"); got != "obj" {
			t.Errorf("expected format inferred from output path, got %q", got)
		}
		writeJSON(w, http.StatusAccepted, acceptedGeneration("gen-flow"))
	})
	clock := newFakeClock()
	out := filepath.Join(t.TempDir(), "robot.obj")

	path, err := api.client(clock.options()...).GenerateAndDownload(context.Background(), writeImage(t, "robot.png"), out, GenerationRequest{}, WaitOptions{})
	if err != nil {
		t.Fatalf("GenerateAndDownload returned error: %v", err)
	}
	if path != out || readFile(t, path) != modelBytes {
		t.Fatalf("unexpected output %s", path)
	}
}
