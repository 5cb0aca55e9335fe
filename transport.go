package printpal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const maxResponseBytes = 4 << 20

type apiRequest struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	timeout     time.Duration
}

func (c *Client) get(ctx context.Context, path string) (map[string]any, error) {
	return c.do(ctx, apiRequest{method: http.MethodGet, path: path})
}

// do issues one authenticated API call and maps the response onto the error
// taxonomy. It never retries.
func (c *Client) do(ctx context.Context, req apiRequest) (map[string]any, error) {
	if c == nil {
		return nil, errors.New("printpal: client is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("printpal: %s %s: %w", req.method, req.path, err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("printpal: wait for rate limit: %w", err)
		}
	}

	timeout := req.timeout
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return nil, fmt.Errorf("printpal: build request: %w", err)
	}
	c.applyHeaders(httpReq)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return nil, classifyRequestError(ctx, req.path, timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyRequestError(ctx, req.path, timeout, err)
	}
	c.logger.Debug("api call",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"latency", latency,
	)
	return handleResponse(resp, body)
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

func decodeBody(body []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return map[string]any{}, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func handleResponse(resp *http.Response, body []byte) (map[string]any, error) {
	data, decodeErr := decodeBody(body)
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		if decodeErr != nil {
			return nil, &Error{
				Kind:       KindTransport,
				StatusCode: resp.StatusCode,
				Message:    "decode response",
				Err:        decodeErr,
			}
		}
		return data, nil
	}
	return nil, statusError(resp, data)
}

func statusError(resp *http.Response, data map[string]any) *Error {
	message := stringField(data, "message")
	if message == "" {
		message = stringField(data, "error")
	}
	if message == "" {
		message = "Unknown error"
	}
	apiErr := &Error{StatusCode: resp.StatusCode, Message: message, Response: data}
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		apiErr.Kind = KindAuthentication
	case code == http.StatusPaymentRequired:
		apiErr.Kind = KindInsufficientCredits
		if n, ok := optionalInt(data, "credits_required"); ok {
			apiErr.CreditsRequired = &n
		}
		if n, ok := optionalInt(data, "credits_available"); ok {
			apiErr.CreditsAvailable = &n
		}
	case code == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case code == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	case code == http.StatusBadRequest:
		apiErr.Kind = KindValidation
	case code >= http.StatusInternalServerError:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindTransport
	}
	return apiErr
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

// classifyRequestError separates caller cancellation, network timeouts and
// connection failures. Cancellation of ctx is returned unclassified.
func classifyRequestError(ctx context.Context, path string, timeout time.Duration, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("printpal: request to %s: %w", path, ctxErr)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("request to %s timed out after %s", path, timeout),
			Err:     err,
		}
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &Error{Kind: KindConnection, Message: "failed to connect to API", Err: err}
	}
	return &Error{Kind: KindTransport, Message: "request failed", Err: err}
}
