package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a generation failure for retry and fallback decisions.
type Kind int

const (
	// KindAuth: the provider rejected the credentials. Not retryable.
	KindAuth Kind = iota
	// KindRateLimited: the provider throttled the request.
	KindRateLimited
	// KindTimeout: the request exceeded its deadline or was cancelled.
	KindTimeout
	// KindUnavailable: the provider could not be reached or returned a
	// server error.
	KindUnavailable
	// KindMalformedOutput: the provider responded but the payload was
	// unusable. Not retryable.
	KindMalformedOutput
)

// String returns the label used in logs and diagnostics.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindMalformedOutput:
		return "malformed_output"
	default:
		return "unknown"
	}
}

// Error is a classified generation failure from a provider.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: generation failed (%s): %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: generation failed (%s)", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a classified generation failure.
func NewError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// Retryable reports whether err is a generation failure worth retrying:
// a timeout, a throttle, or a transient unavailability.
func Retryable(err error) bool {
	var genErr *Error
	if !errors.As(err, &genErr) {
		return false
	}
	switch genErr.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

// KindOf extracts the failure kind from err.
//
// Postcondition: Returns (kind, true) when err wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind, true
	}
	return 0, false
}

// ConfigError reports a provider that cannot be constructed or activated
// because of missing or invalid configuration. A failed provider switch
// leaves the previous provider active.
type ConfigError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s: %s", e.Provider, e.Field, e.Reason)
}

// classifyTransport maps transport-level failures that every HTTP-backed
// provider shares. Status-code mapping stays with each provider.
func classifyTransport(provider string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewError(KindTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTimeout, provider, err)
	}
	return NewError(KindUnavailable, provider, err)
}

// classifyStatus maps an HTTP status code from a provider API to a Kind.
func classifyStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimited
	case status == 408:
		return KindTimeout
	default:
		return KindUnavailable
	}
}
