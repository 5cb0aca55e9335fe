package printpal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Version is reported in the User-Agent header.
const Version = "1.0.3"

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://printpal.io"
	// APIKeyEnv is consulted when no API key is passed to New.
	APIKeyEnv = "PRINTPAL_API_KEY"

	// DefaultPollInterval is the status polling cadence used by WaitForCompletion.
	DefaultPollInterval = 5 * time.Second
	// MaxConcurrentGenerations is the service's per-account concurrency limit.
	MaxConcurrentGenerations = 5
	// RateLimitPerMinute is the service's published request limit.
	RateLimitPerMinute = 50

	defaultRequestTimeout  = 60 * time.Second
	defaultUploadTimeout   = 120 * time.Second
	defaultDownloadTimeout = 300 * time.Second
)

// Client talks to the PrintPal generation API. It is safe for concurrent use.
type Client struct {
	apiKey    string
	baseURL   string
	userAgent string

	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter

	requestTimeout  time.Duration
	uploadTimeout   time.Duration
	downloadTimeout time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient overrides the default HTTP client. Per-call deadlines are
// applied through request contexts, so the client's own Timeout may stay zero.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger routes client diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(userAgent); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithTimeouts overrides the per-call deadlines for regular API calls,
// generation submissions and artifact transfers. Zero values keep defaults.
func WithTimeouts(request, upload, download time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.requestTimeout = request
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
		if download > 0 {
			c.downloadTimeout = download
		}
	}
}

// WithRateLimit paces outbound API calls to at most perMinute requests per
// minute. Calls wait for a slot; nothing is retried. Zero disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithClock overrides the wall clock used by WaitForCompletion (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSleeper overrides how poll sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New creates a Client. An empty apiKey falls back to $PRINTPAL_API_KEY;
// when neither is set New fails with an authentication error.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}
	if apiKey == "" {
		return nil, &Error{
			Kind:    KindAuthentication,
			Message: "API key is required; pass it to New or set " + APIKeyEnv,
		}
	}
	client := &Client{
		apiKey:          apiKey,
		baseURL:         DefaultBaseURL,
		userAgent:       "printpal-go/" + Version,
		httpClient:      &http.Client{},
		logger:          slog.New(slog.DiscardHandler),
		requestTimeout:  defaultRequestTimeout,
		uploadTimeout:   defaultUploadTimeout,
		downloadTimeout: defaultDownloadTimeout,
		now:             time.Now,
		sleep:           sleepWithContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	parsed, err := url.Parse(client.baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, newValidationError("invalid base url %q", client.baseURL)
	}
	client.baseURL = strings.TrimRight(client.baseURL, "/")
	client.logger = client.logger.With(slog.String("component", "printpal"))
	return client, nil
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle pooled connections.
func (c *Client) Close() error {
	if c == nil || c.httpClient == nil {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// Health reports service health. The endpoint does not require a valid key.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	data, err := c.get(ctx, "/api/health")
	if err != nil {
		return nil, err
	}
	health := parseHealthStatus(data)
	return &health, nil
}

// Pricing returns credit costs per generation type. The endpoint does not
// require a valid key.
func (c *Client) Pricing(ctx context.Context) (*PricingInfo, error) {
	data, err := c.get(ctx, "/api/pricing")
	if err != nil {
		return nil, err
	}
	pricing := parsePricingInfo(data)
	return &pricing, nil
}

// Credits returns the account's credit balance.
func (c *Client) Credits(ctx context.Context) (*CreditsInfo, error) {
	data, err := c.get(ctx, "/api/credits")
	if err != nil {
		return nil, err
	}
	credits := parseCreditsInfo(data)
	return &credits, nil
}

// Usage returns usage statistics for the calling key.
func (c *Client) Usage(ctx context.Context) (*UsageStats, error) {
	data, err := c.get(ctx, "/api/usage")
	if err != nil {
		return nil, err
	}
	usage := parseUsageStats(data)
	return &usage, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func generationPath(uid, action string) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", newValidationError("generation uid is required")
	}
	return fmt.Sprintf("/api/generate/%s/%s", url.PathEscape(uid), action), nil
}
