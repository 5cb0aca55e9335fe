package printpal

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Generation lifecycle states reported by the service.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusUnknown    = "unknown"
)

// GenerationStatus is a snapshot of a generation's lifecycle.
type GenerationStatus struct {
	GenerationUID string
	Status        string
	CreatedAt     *time.Time
	CompletedAt   *time.Time
	Quality       string
	Format        string
	Resolution    string
	DownloadURL   string
	// ExternalState is the processing-stage label some tiers report.
	ExternalState string
	Raw           map[string]any
}

// IsCompleted reports whether the generation finished successfully.
func (s GenerationStatus) IsCompleted() bool { return s.Status == StatusCompleted }

// IsFailed reports whether the service declared the generation failed.
func (s GenerationStatus) IsFailed() bool { return s.Status == StatusFailed }

// IsProcessing reports whether the generation is pending or in progress.
func (s GenerationStatus) IsProcessing() bool {
	return s.Status == StatusPending || s.Status == StatusProcessing
}

// IsTerminal reports whether no further state change is expected.
func (s GenerationStatus) IsTerminal() bool { return s.IsCompleted() || s.IsFailed() }

// GenerationResult acknowledges an accepted submission.
type GenerationResult struct {
	GenerationUID    string
	Status           string
	Quality          string
	CreditsUsed      int
	CreditsRemaining int
	EstimatedTime    time.Duration
	StatusURL        string
	DownloadURL      string
	Resolution       string
	HasTexture       bool
	Raw              map[string]any
}

// DownloadInfo is a time-limited handle for fetching a finished model.
type DownloadInfo struct {
	DownloadURL string
	Format      string
	ExpiresIn   time.Duration
	// Status is set when the service echoes the generation state.
	Status string
	Raw    map[string]any
}

// CreditsInfo is the account's credit balance.
type CreditsInfo struct {
	Credits  int
	UserID   int
	Username string
}

// PricingTier describes one purchasable generation type.
type PricingTier struct {
	Cost          int
	Description   string
	Resolution    string
	EstimatedTime time.Duration
}

// PricingInfo lists generation costs and service limits.
type PricingInfo struct {
	Credits          map[string]PricingTier
	SupportedFormats []string
	RateLimits       map[string]int
}

// APIKeyInfo summarizes the calling key's usage.
type APIKeyInfo struct {
	Name          string
	TotalRequests int
	CreditsUsed   int
	LastUsed      *time.Time
}

// UsageStats reports usage for the calling key.
type UsageStats struct {
	APIKey           APIKeyInfo
	CreditsRemaining int
	RecentRequests   []map[string]any
}

// HealthStatus is the service health report.
type HealthStatus struct {
	Status string
	Raw    map[string]any
}

func parseGenerationStatus(data map[string]any) GenerationStatus {
	status := stringField(data, "status")
	if status == "" {
		status = StatusUnknown
	}
	return GenerationStatus{
		GenerationUID: stringField(data, "generation_uid"),
		Status:        status,
		CreatedAt:     timeField(data, "created_at"),
		CompletedAt:   timeField(data, "completed_at"),
		Quality:       stringField(data, "quality"),
		Format:        stringField(data, "format"),
		Resolution:    stringField(data, "resolution"),
		DownloadURL:   stringField(data, "download_url"),
		ExternalState: stringField(data, "external_state"),
		Raw:           data,
	}
}

func parseGenerationResult(data map[string]any) GenerationResult {
	return GenerationResult{
		GenerationUID:    stringField(data, "generation_uid"),
		Status:           stringField(data, "status"),
		Quality:          stringField(data, "quality"),
		CreditsUsed:      intField(data, "credits_used"),
		CreditsRemaining: intField(data, "credits_remaining"),
		EstimatedTime:    secondsField(data, "estimated_time_seconds"),
		StatusURL:        stringField(data, "status_url"),
		DownloadURL:      stringField(data, "download_url"),
		Resolution:       stringField(data, "resolution"),
		HasTexture:       boolField(data, "has_texture"),
		Raw:              data,
	}
}

func parseDownloadInfo(data map[string]any) DownloadInfo {
	format := strings.ToLower(stringField(data, "format"))
	if format == "" {
		format = string(FormatSTL)
	}
	return DownloadInfo{
		DownloadURL: stringField(data, "download_url"),
		Format:      format,
		ExpiresIn:   secondsField(data, "expires_in"),
		Status:      stringField(data, "status"),
		Raw:         data,
	}
}

func parseCreditsInfo(data map[string]any) CreditsInfo {
	return CreditsInfo{
		Credits:  intField(data, "credits"),
		UserID:   intField(data, "user_id"),
		Username: stringField(data, "username"),
	}
}

func parsePricingInfo(data map[string]any) PricingInfo {
	info := PricingInfo{
		Credits:    map[string]PricingTier{},
		RateLimits: map[string]int{},
	}
	for name, raw := range mapField(data, "credits") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		info.Credits[name] = PricingTier{
			Cost:          intField(entry, "cost"),
			Description:   stringField(entry, "description"),
			Resolution:    stringField(entry, "resolution"),
			EstimatedTime: secondsField(entry, "estimated_time_seconds"),
		}
	}
	if formats, ok := data["supported_formats"].([]any); ok {
		for _, f := range formats {
			if s, ok := f.(string); ok {
				info.SupportedFormats = append(info.SupportedFormats, s)
			}
		}
	}
	limits := mapField(data, "rate_limits")
	for name := range limits {
		info.RateLimits[name] = intField(limits, name)
	}
	return info
}

func parseUsageStats(data map[string]any) UsageStats {
	key := mapField(data, "api_key")
	stats := UsageStats{
		APIKey: APIKeyInfo{
			Name:          stringField(key, "name"),
			TotalRequests: intField(key, "total_requests"),
			CreditsUsed:   intField(key, "credits_used"),
			LastUsed:      timeField(key, "last_used"),
		},
		CreditsRemaining: intField(mapField(data, "user"), "credits_remaining"),
	}
	if recent, ok := data["recent_requests"].([]any); ok {
		for _, entry := range recent {
			if m, ok := entry.(map[string]any); ok {
				stats.RecentRequests = append(stats.RecentRequests, m)
			}
		}
	}
	return stats
}

func parseHealthStatus(data map[string]any) HealthStatus {
	return HealthStatus{Status: stringField(data, "status"), Raw: data}
}

func mapField(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intField(data map[string]any, key string) int {
	n, _ := optionalInt(data, key)
	return n
}

func optionalInt(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		if f, err := v.Float64(); err == nil {
			return int(math.Round(f)), true
		}
	case float64:
		return int(math.Round(v)), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func boolField(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

func secondsField(data map[string]any, key string) time.Duration {
	return time.Duration(intField(data, key)) * time.Second
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// timeField parses an ISO-8601 timestamp; absent or malformed values yield nil.
// Timestamps without a zone are taken as UTC.
func timeField(data map[string]any, key string) *time.Time {
	raw := stringField(data, key)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}
