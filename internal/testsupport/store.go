package testsupport

import (
	"context"
	"testing"

	"github.com/printpal-io/printpal-go/internal/config"
	"github.com/printpal-io/printpal-go/internal/jobs"
)

// MustOpenJobs opens a jobs.Store for tests and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordJob stores a ledger row for tests, filling in image defaults.
func RecordJob(t testing.TB, store *jobs.Store, job jobs.Job) {
	t.Helper()

	if job.InputKind == "" {
		job.InputKind = jobs.InputImage
	}
	if job.Quality == "" {
		job.Quality = "default"
	}
	if job.Format == "" {
		job.Format = "stl"
	}
	if job.Status == "" {
		job.Status = "pending"
	}
	if err := store.Record(context.Background(), job); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
}
