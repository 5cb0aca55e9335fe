package printpal

import (
	"testing"
	"time"
)

func mustDecode(t *testing.T, body string) map[string]any {
	t.Helper()
	data, err := decodeBody([]byte(body))
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	return data
}

func TestParseGenerationStatusRoundTrip(t *testing.T) {
	data := mustDecode(t, `{
		"generation_uid": "abc123-def456",
		"status": "processing",
		"created_at": "2026-01-15T10:30:00Z",
		"completed_at": "2026-01-15T10:31:05.250000+00:00",
		"quality": "super",
		"format": "glb",
		"resolution": "768 cubed",
		"download_url": "https://cdn.example/model.glb",
		"external_state": "meshing"
	}`)
	status := parseGenerationStatus(data)

	if status.GenerationUID != "abc123-def456" || status.Status != StatusProcessing {
		t.Fatalf("unexpected identity fields: %+v", status)
	}
	if status.Quality != "super" || status.Format != "glb" || status.Resolution != "768 cubed" {
		t.Fatalf("unexpected echo fields: %+v", status)
	}
	if status.DownloadURL != "https://cdn.example/model.glb" || status.ExternalState != "meshing" {
		t.Fatalf("unexpected url/state: %+v", status)
	}
	wantCreated := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	if status.CreatedAt == nil || !status.CreatedAt.Equal(wantCreated) {
		t.Fatalf("unexpected created_at: %v", status.CreatedAt)
	}
	wantCompleted := time.Date(2026, 1, 15, 10, 31, 5, 250_000_000, time.UTC)
	if status.CompletedAt == nil || !status.CompletedAt.Equal(wantCompleted) {
		t.Fatalf("unexpected completed_at: %v", status.CompletedAt)
	}
	if !status.IsProcessing() || status.IsTerminal() {
		t.Fatal("expected processing, non-terminal status")
	}
}

func TestParseGenerationStatusDefaults(t *testing.T) {
	status := parseGenerationStatus(mustDecode(t, `{"created_at": "yesterday-ish", "completed_at": 17}`))
	if status.Status != StatusUnknown {
		t.Fatalf("expected unknown status, got %q", status.Status)
	}
	if status.CreatedAt != nil || status.CompletedAt != nil {
		t.Fatalf("expected malformed timestamps to be absent: %+v", status)
	}
	if status.Quality != "" || status.IsProcessing() || status.IsCompleted() || status.IsFailed() {
		t.Fatalf("unexpected defaults: %+v", status)
	}
}

func TestParseGenerationStatusNaiveTimestamp(t *testing.T) {
	status := parseGenerationStatus(mustDecode(t, `{"status":"completed","created_at":"2026-02-01T08:00:00.123456"}`))
	if status.CreatedAt == nil {
		t.Fatal("expected zone-less timestamp to parse")
	}
	if status.CreatedAt.Location() != time.UTC || status.CreatedAt.Hour() != 8 {
		t.Fatalf("unexpected timestamp: %v", status.CreatedAt)
	}
}

func TestParseGenerationResult(t *testing.T) {
	result := parseGenerationResult(mustDecode(t, `{
		"generation_uid": "gen-1",
		"status": "pending",
		"quality": "high",
		"credits_used": 6,
		"credits_remaining": "94",
		"estimated_time_seconds": 30,
		"status_url": "/api/generate/gen-1/status",
		"download_url": "/api/generate/gen-1/download",
		"resolution": "384 cubed",
		"has_texture": true
	}`))
	if result.GenerationUID != "gen-1" || result.Status != "pending" || result.Quality != "high" {
		t.Fatalf("unexpected identity: %+v", result)
	}
	if result.CreditsUsed != 6 || result.CreditsRemaining != 94 {
		t.Fatalf("unexpected credits: %+v", result)
	}
	if result.EstimatedTime != 30*time.Second {
		t.Fatalf("unexpected estimate: %s", result.EstimatedTime)
	}
	if result.StatusURL == "" || result.DownloadURL == "" || !result.HasTexture || result.Resolution != "384 cubed" {
		t.Fatalf("unexpected urls/flags: %+v", result)
	}

	empty := parseGenerationResult(map[string]any{})
	if empty.CreditsUsed != 0 || empty.HasTexture || empty.GenerationUID != "" {
		t.Fatalf("expected zero defaults, got %+v", empty)
	}
}

func TestParseCreditsPricingUsage(t *testing.T) {
	credits := parseCreditsInfo(mustDecode(t, `{"credits": 120, "user_id": 42, "username": "maker"}`))
	if credits.Credits != 120 || credits.UserID != 42 || credits.Username != "maker" {
		t.Fatalf("unexpected credits: %+v", credits)
	}

	pricing := parsePricingInfo(mustDecode(t, `{
		"credits": {
			"default": {"cost": 4, "description": "Fast", "resolution": "256 cubed", "estimated_time_seconds": 20},
			"broken": "not-an-object"
		},
		"supported_formats": ["stl", "glb", 3],
		"rate_limits": {"per_minute": 50, "per_day": 10000}
	}`))
	tier, ok := pricing.Credits["default"]
	if !ok || tier.Cost != 4 || tier.Description != "Fast" || tier.EstimatedTime != 20*time.Second {
		t.Fatalf("unexpected tier: %+v", pricing.Credits)
	}
	if _, ok := pricing.Credits["broken"]; ok {
		t.Fatal("expected malformed tier to be skipped")
	}
	if len(pricing.SupportedFormats) != 2 {
		t.Fatalf("unexpected formats: %v", pricing.SupportedFormats)
	}
	if pricing.RateLimits["per_minute"] != 50 || pricing.RateLimits["per_day"] != 10000 {
		t.Fatalf("unexpected rate limits: %v", pricing.RateLimits)
	}

	usage := parseUsageStats(mustDecode(t, `{
		"api_key": {"name": "ci", "total_requests": 12, "credits_used": 48, "last_used": "2026-03-04T05:06:07Z"},
		"user": {"credits_remaining": 52},
		"recent_requests": [{"endpoint": "/api/generate"}, "junk"]
	}`))
	if usage.APIKey.Name != "ci" || usage.APIKey.TotalRequests != 12 || usage.APIKey.CreditsUsed != 48 {
		t.Fatalf("unexpected key info: %+v", usage.APIKey)
	}
	if usage.APIKey.LastUsed == nil || usage.APIKey.LastUsed.Year() != 2026 {
		t.Fatalf("unexpected last used: %v", usage.APIKey.LastUsed)
	}
	if usage.CreditsRemaining != 52 || len(usage.RecentRequests) != 1 {
		t.Fatalf("unexpected usage: %+v", usage)
	}

	bare := parseUsageStats(map[string]any{})
	if bare.APIKey.LastUsed != nil || bare.CreditsRemaining != 0 {
		t.Fatalf("unexpected bare usage: %+v", bare)
	}
}

func TestParseDownloadInfoDefaultsFormat(t *testing.T) {
	info := parseDownloadInfo(mustDecode(t, `{"download_url": "https://cdn.example/x", "expires_in": 3600}`))
	if info.Format != "stl" || info.ExpiresIn != time.Hour {
		t.Fatalf("unexpected download info: %+v", info)
	}
}
