package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/config"
	"github.com/printpal-io/printpal-go/internal/jobs"
)

const checkTimeout = 30 * time.Second

// API is the subset of *printpal.Client the checks call.
type API interface {
	Health(ctx context.Context) (*printpal.HealthStatus, error)
	Credits(ctx context.Context) (*printpal.CreditsInfo, error)
}

// CheckAPI verifies the service answers its health endpoint.
// It uses a 30-second timeout and a single attempt.
func CheckAPI(ctx context.Context, api API) Result {
	const name = "PrintPal API"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	health, err := api.Health(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	status := health.Status
	if status == "" {
		status = "reachable"
	}
	return Result{Name: name, Passed: true, Detail: status}
}

// CheckCredentials verifies the API key by reading the credit balance.
func CheckCredentials(ctx context.Context, api API) Result {
	const name = "API key"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	info, err := api.Credits(checkCtx)
	if err != nil {
		if errors.Is(err, printpal.ErrAuthentication) {
			return Result{Name: name, Detail: "rejected by the service (invalid api key)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	detail := fmt.Sprintf("valid (%d credits)", info.Credits)
	if info.Username != "" {
		detail = fmt.Sprintf("valid for %s (%d credits)", info.Username, info.Credits)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedger opens the jobs ledger, creating it when missing, and reports
// how many generations are still pending.
func CheckLedger(path string) Result {
	const name = "Jobs ledger"

	store, err := jobs.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pending, err := store.Pending(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d pending)", path, len(pending))}
}

// CheckConfigFile reports which configuration file is in effect.
func CheckConfigFile(path string, exists bool) Result {
	const name = "Config file"

	if !exists {
		return Result{Name: name, Passed: true, Detail: "not found, using defaults and environment"}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckAPIKeyConfigured checks the key is present without calling the service.
func CheckAPIKeyConfigured(cfg *config.Config) Result {
	const name = "API key configured"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "present"}
}

// summarizeError produces a human-readable summary for check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, printpal.ErrTimeout) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	if errors.Is(err, printpal.ErrConnection) {
		return "service unreachable"
	}
	return err.Error()
}
