package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a provider failure tagged with whether repeating the call can help.
// Judges never repeat calls; the extractor and analyzer retry Retryable errors.
type ProviderError struct {
	Retryable bool
	// Status is the HTTP status the provider answered with, 0 when no response arrived
	Status int
	err    error
}

func (e *ProviderError) Error() string { return e.err.Error() }

func (e *ProviderError) Unwrap() error { return e.err }

// NewTransientError marks err as worth retrying: throttling, outages, empty replies
func NewTransientError(err error) error {
	return &ProviderError{Retryable: true, err: err}
}

// NewFatalError marks err as permanent: bad credentials, unknown model, malformed request
func NewFatalError(err error) error {
	return &ProviderError{err: err}
}

// IsTransient reports whether err carries a retryable ProviderError
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// IsFatal reports whether err carries a permanent ProviderError
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && !pe.Retryable
}

// classifyStatus tags err by the provider's HTTP status: 429 and 5xx are retryable, other 4xx are not.
// Any other status leaves err untouched.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return &ProviderError{Retryable: true, Status: status, err: err}
	case status >= 400:
		return &ProviderError{Status: status, err: err}
	default:
		return err
	}
}

// apiError builds the error for a non-2xx provider reply
func apiError(status int, msg string) error {
	return classifyStatus(status, fmt.Errorf("API error (%d): %s", status, msg))
}
