package rerank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
	"github.com/kailas-cloud/matchd/internal/metrics"
)

// Service applies the external judgment service to the head of a ranked list.
// It never fails a request: any exhausted or non-retryable error keeps the
// incoming order and reports degradation to the caller.
type Service struct {
	reranker domain.Reranker
	policy   Policy
	logger   *zap.Logger
}

// NewService creates a rerank stage around the given judgment client.
func NewService(reranker domain.Reranker, policy Policy, logger *zap.Logger) *Service {
	return &Service{reranker: reranker, policy: policy, logger: logger}
}

// Rerank reorders cands according to the judgment service and reports whether
// the reordering was applied. profiles supplies the tutor data for the
// judgment prompt; cands missing a profile fail the stage. On any failure the
// input slice is returned unchanged and ok is false. On success every
// candidate carries its pre-rerank position.
func (s *Service) Rerank(
	ctx context.Context,
	order domain.Order,
	cands []matching.Candidate,
	profiles []domain.TutorProfile,
) ([]matching.Candidate, bool) {
	started := time.Now()
	defer func() { metrics.RerankDuration.Observe(time.Since(started).Seconds()) }()

	payload, err := buildPayload(cands, profiles)
	if err != nil {
		s.logger.Warn("Rerank candidate payload failed",
			zap.String("order_id", order.ID), zap.Error(err))
		metrics.RerankRequestsTotal.WithLabelValues("degraded").Inc()
		return cands, false
	}

	ids, err := s.attempt(ctx, buildOrderContext(order), payload)
	if err != nil {
		s.logger.Warn("Rerank unavailable, keeping model order",
			zap.String("order_id", order.ID),
			zap.Int("candidates", len(cands)),
			zap.Error(err))
		metrics.RerankRequestsTotal.WithLabelValues("degraded").Inc()
		return cands, false
	}

	reordered, err := applyOrder(cands, ids)
	if err != nil {
		s.logger.Warn("Rerank returned invalid ordering, keeping model order",
			zap.String("order_id", order.ID), zap.Error(err))
		metrics.RerankAttemptsTotal.WithLabelValues("malformed").Inc()
		metrics.RerankRequestsTotal.WithLabelValues("degraded").Inc()
		return cands, false
	}

	metrics.RerankRequestsTotal.WithLabelValues("success").Inc()
	return reordered, true
}

// attempt runs the retry loop under the policy's total wall-clock budget.
func (s *Service) attempt(
	ctx context.Context, order domain.OrderContext, cands []domain.RerankCandidate,
) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.policy.TotalBudget)
	defer cancel()

	var lastErr error
	for i := 0; i < s.policy.MaxAttempts; i++ {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, s.policy.AttemptTimeout)
		ids, err := s.reranker.Rerank(attemptCtx, order, cands)
		attemptCancel()

		if err == nil {
			metrics.RerankAttemptsTotal.WithLabelValues("success").Inc()
			return ids, nil
		}
		lastErr = err
		metrics.RerankAttemptsTotal.WithLabelValues(attemptOutcome(err)).Inc()

		if !s.policy.Retryable(err) {
			return nil, err
		}
		if i == s.policy.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(s.policy.Backoff(i, err)):
		case <-ctx.Done():
			return nil, fmt.Errorf("rerank budget exhausted: %w", lastErr)
		}
	}
	return nil, fmt.Errorf("rerank attempts exhausted: %w", lastErr)
}

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "transient"
	}
}

// buildPayload compacts candidate profiles for the judgment prompt,
// preserving candidate order.
func buildPayload(
	cands []matching.Candidate, profiles []domain.TutorProfile,
) ([]domain.RerankCandidate, error) {
	byID := make(map[string]domain.TutorProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]domain.RerankCandidate, 0, len(cands))
	for _, c := range cands {
		p, ok := byID[c.TutorID]
		if !ok {
			return nil, fmt.Errorf("tutor %s profile: %w", c.TutorID, domain.ErrNotFound)
		}
		out = append(out, domain.RerankCandidate{
			ID:              p.ID,
			Bio:             p.Bio,
			Subjects:        p.Subjects,
			HourlyRate:      p.HourlyRate,
			Rating:          p.Rating,
			ExperienceYears: p.ExperienceYears,
		})
	}
	return out, nil
}

func buildOrderContext(order domain.Order) domain.OrderContext {
	return domain.OrderContext{
		Subject:     order.Subject,
		Title:       order.Title,
		Description: order.Description,
		Goal:        order.Goal,
		Budget:      fmt.Sprintf("%g-%g per hour", order.BudgetMin, order.BudgetMax),
		Schedule:    order.Schedule,
	}
}

// applyOrder reorders cands to match ids, which must be an exact permutation
// of the candidate identifiers. Each result records the candidate's position
// before reordering.
func applyOrder(cands []matching.Candidate, ids []string) ([]matching.Candidate, error) {
	if len(ids) != len(cands) {
		return nil, fmt.Errorf("ranking has %d ids, want %d: %w",
			len(ids), len(cands), domain.ErrMalformedResponse)
	}

	index := make(map[string]int, len(cands))
	for i, c := range cands {
		index[c.TutorID] = i
	}

	out := make([]matching.Candidate, 0, len(cands))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		pos, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("ranking references unknown id %q: %w",
				id, domain.ErrMalformedResponse)
		}
		if seen[id] {
			return nil, fmt.Errorf("ranking repeats id %q: %w", id, domain.ErrMalformedResponse)
		}
		seen[id] = true

		c := cands[pos]
		before := pos
		c.RerankPosition = &before
		out = append(out, c)
	}
	return out, nil
}
