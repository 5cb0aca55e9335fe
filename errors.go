package printpal

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure so callers can branch without parsing messages.
type Kind int

// Error kinds.
const (
	KindTransport Kind = iota
	KindAuthentication
	KindInsufficientCredits
	KindNotFound
	KindRateLimited
	KindValidation
	KindGeneration
	KindTimeout
	KindServer
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindInsufficientCredits:
		return "insufficient_credits"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindValidation:
		return "validation"
	case KindGeneration:
		return "generation"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindConnection:
		return "connection"
	default:
		return "transport"
	}
}

// Sentinels for errors.Is. Every *Error unwraps to the sentinel of its Kind.
var (
	ErrTransport           = errors.New("printpal: transport error")
	ErrAuthentication      = errors.New("printpal: authentication failed")
	ErrInsufficientCredits = errors.New("printpal: insufficient credits")
	ErrNotFound            = errors.New("printpal: not found")
	ErrRateLimited         = errors.New("printpal: rate limited")
	ErrValidation          = errors.New("printpal: validation failed")
	ErrGeneration          = errors.New("printpal: generation failed")
	ErrTimeout             = errors.New("printpal: timed out")
	ErrServer              = errors.New("printpal: server error")
	ErrConnection          = errors.New("printpal: connection failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindAuthentication:
		return ErrAuthentication
	case KindInsufficientCredits:
		return ErrInsufficientCredits
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindValidation:
		return ErrValidation
	case KindGeneration:
		return ErrGeneration
	case KindTimeout:
		return ErrTimeout
	case KindServer:
		return ErrServer
	case KindConnection:
		return ErrConnection
	default:
		return ErrTransport
	}
}

// Error is returned for every API, validation and workflow failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Response holds the decoded error body when the server sent one.
	Response map[string]any

	// Populated for KindInsufficientCredits when the server reports them.
	CreditsRequired  *int
	CreditsAvailable *int

	// Populated for KindRateLimited when the server sends Retry-After.
	RetryAfter time.Duration

	// Populated for KindGeneration and poll timeouts.
	GenerationUID string

	Err error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Kind == KindInsufficientCredits && e.CreditsRequired != nil && e.CreditsAvailable != nil:
		msg = fmt.Sprintf("%s: requires %d credits, but only %d available", msg, *e.CreditsRequired, *e.CreditsAvailable)
	case e.Kind == KindRateLimited && e.RetryAfter > 0:
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter)
	case e.GenerationUID != "":
		msg = fmt.Sprintf("%s (generation %s)", msg, e.GenerationUID)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("[%d] %s", e.StatusCode, msg)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return "printpal: " + msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the Kind of err, and false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsRetriable reports whether err is a transient condition a caller may
// choose to retry. The client itself never retries.
func IsRetriable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindTimeout, KindConnection, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

func newValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}
