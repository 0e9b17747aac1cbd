package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals malformed caller input. Never retried, never degraded.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingUnavailable signals that the embedding provider could not
	// produce a vector for an entity.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrModelUnavailable signals that no trained ranking artifact is loaded.
	ErrModelUnavailable = errors.New("ranking model unavailable")
	// ErrTransient signals a retryable network-class failure (timeout, connection reset).
	ErrTransient = errors.New("transient failure")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformedResponse signals a structurally invalid provider response.
	// Retrying a structurally bad response wastes the latency budget, so this
	// class is never retried.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSchemaMismatch signals a feature schema / model artifact version conflict.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

// RateLimitError wraps ErrRateLimited with the provider's reset hint, when given.
type RateLimitError struct {
	ResetAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.ResetAfter > 0 {
		return fmt.Sprintf("%s: reset in %s", ErrRateLimited.Error(), e.ResetAfter)
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewRateLimit creates a rate limit error with an optional reset hint.
func NewRateLimit(resetAfter time.Duration) error {
	return &RateLimitError{ResetAfter: resetAfter}
}
