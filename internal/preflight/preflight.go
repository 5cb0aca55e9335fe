package preflight

import (
	"context"

	"github.com/printpal-io/printpal-go/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check for the given config. The API checks are
// skipped when api is nil or the key is not configured.
func RunAll(ctx context.Context, cfg *config.Config, configPath string, configExists bool, api API) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckConfigFile(configPath, configExists)}

	// State directory holds the jobs ledger
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	results = append(results, CheckLedger(cfg.JobsDBPath()))

	key := CheckAPIKeyConfigured(cfg)
	results = append(results, key)

	if api != nil {
		results = append(results, CheckAPI(ctx, api))
		if key.Passed {
			results = append(results, CheckCredentials(ctx, api))
		}
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
