package providers

import (
	"fmt"
	"net/http"
	"strings"
)

// BackendReason categorizes why a model backend request failed.
type BackendReason string

const (
	// ReasonRateLimit indicates rate limiting (HTTP 429).
	ReasonRateLimit BackendReason = "rate_limit"

	// ReasonAuth indicates authentication failure (HTTP 401, 403).
	ReasonAuth BackendReason = "auth"

	// ReasonTimeout indicates a request timeout.
	ReasonTimeout BackendReason = "timeout"

	// ReasonServerError indicates server-side issues (HTTP 5xx).
	ReasonServerError BackendReason = "server_error"

	// ReasonInvalidRequest indicates client-side issues (HTTP 400).
	ReasonInvalidRequest BackendReason = "invalid_request"

	// ReasonOverloaded indicates the backend shed load.
	ReasonOverloaded BackendReason = "overloaded"

	// ReasonUnknown indicates an unclassified failure.
	ReasonUnknown BackendReason = "unknown"
)

// BackendError is a structured failure from the model backend. It carries
// enough category information for the orchestrator to decide what to surface
// to the user; the client itself never retries.
type BackendError struct {
	// Reason categorizes the failure.
	Reason BackendReason

	// Provider is the backend name (e.g. "anthropic").
	Provider string

	// Model is the model that was requested.
	Model string

	// Status is the HTTP status code, if applicable.
	Status int

	// Code is the provider-specific error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// Cause is the underlying error.
	Cause error
}

func (e *BackendError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Reason))
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

func classifyStatus(status int) BackendReason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusTooManyRequests:
		return ReasonRateLimit
	case status == http.StatusBadRequest:
		return ReasonInvalidRequest
	case status == 529:
		return ReasonOverloaded
	case status >= 500:
		return ReasonServerError
	default:
		return ReasonUnknown
	}
}

func classifyCause(err error) BackendReason {
	if err == nil {
		return ReasonUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return ReasonTimeout
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return ReasonRateLimit
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "invalid api key"):
		return ReasonAuth
	case strings.Contains(msg, "overloaded"):
		return ReasonOverloaded
	default:
		return ReasonUnknown
	}
}
