// Package rerank drives the external judgment service with bounded retries
// and treats every failure as a fall-back to the incoming order.
package rerank

import (
	"errors"
	"math/rand"
	"time"

	"github.com/kailas-cloud/matchd/internal/domain"
)

// Policy bounds the retry behavior of the rerank stage. The total budget is a
// wall-clock ceiling across all attempts and backoff sleeps combined.
type Policy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	TotalBudget    time.Duration
}

// Retryable reports whether an attempt failure is worth retrying. Only
// transient network-class failures and rate limits qualify; a structurally
// malformed response would come back malformed again.
func (p Policy) Retryable(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, domain.ErrRateLimited)
}

// Backoff returns the sleep before the next attempt. attempt is zero-based
// for the attempt that just failed. A provider reset hint overrides the
// exponential schedule; otherwise the base doubles per attempt with up to 50%
// jitter to spread retries from concurrent requests.
func (p Policy) Backoff(attempt int, err error) time.Duration {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) && rl.ResetAfter > 0 {
		return rl.ResetAfter
	}

	d := p.BackoffBase << attempt
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int63n(int64(d)/2 + 1))
}
