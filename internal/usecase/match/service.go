// Package match orchestrates the full pipeline: validate, consult the result
// cache, retrieve, score, rerank, and publish a cached result per fingerprint.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
	"github.com/kailas-cloud/matchd/internal/metrics"
)

// Options tune pipeline behavior; every field has a validated config default.
type Options struct {
	// CandidateLimit caps how many candidates retrieval may return.
	CandidateLimit int
	// MaxTopK clamps the caller's top_k.
	MaxTopK int
	// ResultTTL bounds result staleness; expiry is the only freshness mechanism.
	ResultTTL time.Duration
	// RerankEnabled gates the judgment stage. Disabled is a deliberate mode,
	// not a degradation.
	RerankEnabled bool
	// OversampleMult sizes the rerank head as top_k times this factor.
	OversampleMult int
}

type inflightCall struct {
	done chan struct{}
	res  matching.Result
	err  error
}

// Service runs match requests. Concurrent requests with equal fingerprints
// coalesce onto a single computation.
type Service struct {
	orders    domain.OrderReader
	tutors    domain.TutorReader
	retriever Retriever
	ranker    Ranker
	rerank    RerankStage
	cache     ResultCache
	opts      Options
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// NewService wires the pipeline stages into an orchestrator.
func NewService(
	orders domain.OrderReader,
	tutors domain.TutorReader,
	retriever Retriever,
	ranker Ranker,
	rerank RerankStage,
	cache ResultCache,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:    orders,
		tutors:    tutors,
		retriever: retriever,
		ranker:    ranker,
		rerank:    rerank,
		cache:     cache,
		opts:      opts,
		logger:    logger,
		inflight:  make(map[string]*inflightCall),
	}
}

// Match returns the ranked result for an order. Validation failures return
// before any external call; everything past validation resolves through the
// cache, a coalesced in-flight computation, or a fresh pipeline run.
func (s *Service) Match(
	ctx context.Context, orderID string, filters matching.Filters, topK int,
) (matching.Result, error) {
	started := time.Now()

	req, err := matching.NewRequest(orderID, filters, topK)
	if err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("invalid", "false").Inc()
		return matching.Result{}, err
	}
	if req.TopK > s.opts.MaxTopK {
		req.TopK = s.opts.MaxTopK
	}
	req.ModelVersion = s.ranker.ModelVersion()
	fp := req.Fingerprint()

	if res, ok := s.cache.Get(ctx, fp); ok {
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		s.observe(res, nil, started)
		return res, nil
	}
	metrics.ResultCacheTotal.WithLabelValues("miss").Inc()

	res, err := s.coalesce(ctx, req, fp)
	s.observe(res, err, started)
	return res, err
}

// coalesce ensures a single computation per fingerprint. The first caller
// computes; the rest wait on its outcome or their own context.
func (s *Service) coalesce(
	ctx context.Context, req matching.Request, fp string,
) (matching.Result, error) {
	s.mu.Lock()
	if call, ok := s.inflight[fp]; ok {
		s.mu.Unlock()
		metrics.ResultCacheTotal.WithLabelValues("coalesced").Inc()
		select {
		case <-call.done:
			return call.res, call.err
		case <-ctx.Done():
			return matching.Result{}, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	s.inflight[fp] = call
	s.mu.Unlock()

	call.res, call.err = s.compute(ctx, req, fp)
	close(call.done)

	s.mu.Lock()
	delete(s.inflight, fp)
	s.mu.Unlock()

	return call.res, call.err
}

func (s *Service) compute(
	ctx context.Context, req matching.Request, fp string,
) (matching.Result, error) {
	order, err := s.orders.Order(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return matching.Result{}, fmt.Errorf("%w: order %s does not exist",
				domain.ErrInvalidRequest, req.OrderID)
		}
		return matching.Result{}, fmt.Errorf("load order %s: %w", req.OrderID, err)
	}

	var reasons []matching.DegradedReason

	retrieved, err := s.retriever.Retrieve(ctx, order, req.Filters, s.opts.CandidateLimit)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return matching.Result{}, err
		}
		// Without the order vector there is nothing to search against. An
		// explicitly degraded empty result is still cached so retries do not
		// hammer the provider.
		s.logger.Warn("Embedding unavailable, serving degraded empty result",
			zap.String("order_id", req.OrderID), zap.Error(err))
		return s.finish(ctx, fp, nil,
			[]matching.DegradedReason{matching.DegradedEmbeddingUnavailable}), nil
	}
	metrics.MatchCandidates.Observe(float64(len(retrieved)))

	if len(retrieved) == 0 {
		return s.finish(ctx, fp, nil, nil), nil
	}

	profiles, sims, err := s.loadProfiles(ctx, req.Filters, retrieved)
	if err != nil {
		return matching.Result{}, err
	}
	if len(profiles) == 0 {
		return s.finish(ctx, fp, nil, nil), nil
	}

	scored, source := s.ranker.ScoreAll(ctx, order, profiles, sims)
	if source == matching.ScoreSourceHeuristic {
		reasons = append(reasons, matching.DegradedModelUnavailable)
	}

	scored, reasons = s.maybeRerank(ctx, order, scored, profiles, req.TopK, reasons)

	if len(scored) > req.TopK {
		scored = scored[:req.TopK]
	}
	return s.finish(ctx, fp, scored, reasons), nil
}

// loadProfiles resolves retrieved candidates to profiles and re-checks the
// hard filters. The index enforces them too, but it can lag a profile update;
// a candidate violating a filter is dropped, never returned.
func (s *Service) loadProfiles(
	ctx context.Context, filters matching.Filters, retrieved []matching.RetrievedCandidate,
) ([]domain.TutorProfile, []float64, error) {
	ids := make([]string, len(retrieved))
	simByID := make(map[string]float64, len(retrieved))
	for i, c := range retrieved {
		ids[i] = c.TutorID
		simByID[c.TutorID] = c.Similarity
	}

	loaded, err := s.tutors.Tutors(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load tutor profiles: %w", err)
	}
	byID := make(map[string]domain.TutorProfile, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}

	profiles := make([]domain.TutorProfile, 0, len(retrieved))
	sims := make([]float64, 0, len(retrieved))
	for _, c := range retrieved {
		p, ok := byID[c.TutorID]
		if !ok {
			// Indexed but no longer stored; treat as deleted.
			continue
		}
		if !satisfiesFilters(p, filters) {
			continue
		}
		profiles = append(profiles, p)
		sims = append(sims, simByID[p.ID])
	}
	return profiles, sims, nil
}

func satisfiesFilters(p domain.TutorProfile, f matching.Filters) bool {
	if !p.Teaches(f.Subject) {
		return false
	}
	if p.HourlyRate < f.BudgetMin {
		return false
	}
	if f.BudgetMax > 0 && p.HourlyRate > f.BudgetMax {
		return false
	}
	if len(f.Schedule) > 0 {
		avail := make(map[string]struct{}, len(p.Availability))
		for _, slot := range p.Availability {
			avail[slot] = struct{}{}
		}
		overlap := false
		for _, slot := range f.Schedule {
			if _, ok := avail[slot]; ok {
				overlap = true
				break
			}
		}
		if !overlap {
			return false
		}
	}
	return true
}

// maybeRerank sends the oversampled head of the ranking through the judgment
// stage. A single candidate has nothing to reorder, so it is skipped like a
// disabled stage.
func (s *Service) maybeRerank(
	ctx context.Context,
	order domain.Order,
	scored []matching.Candidate,
	profiles []domain.TutorProfile,
	topK int,
	reasons []matching.DegradedReason,
) ([]matching.Candidate, []matching.DegradedReason) {
	if !s.opts.RerankEnabled || len(scored) < 2 {
		metrics.RerankRequestsTotal.WithLabelValues("skipped").Inc()
		return scored, reasons
	}

	head := topK * s.opts.OversampleMult
	if head > len(scored) {
		head = len(scored)
	}

	reranked, ok := s.rerank.Rerank(ctx, order, scored[:head], profiles)
	if !ok {
		return scored, append(reasons, matching.DegradedRerankUnavailable)
	}
	return append(reranked, scored[head:]...), reasons
}

// finish assembles the result, persists it, and returns it. A cache write
// failure costs a recomputation later, not this request.
func (s *Service) finish(
	ctx context.Context, fp string, cands []matching.Candidate, reasons []matching.DegradedReason,
) matching.Result {
	if cands == nil {
		cands = []matching.Candidate{}
	}
	res := matching.Result{
		Fingerprint:    fp,
		Candidates:     cands,
		ComputedAt:     time.Now().UTC(),
		TTL:            s.opts.ResultTTL,
		Degraded:       len(reasons) > 0,
		DegradedReason: matching.WorstReason(reasons),
	}
	if err := s.cache.Put(ctx, res); err != nil {
		s.logger.Warn("Result cache write failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	return res
}

func (s *Service) observe(res matching.Result, err error, started time.Time) {
	status := "success"
	degraded := "false"
	if err != nil {
		status = "error"
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = "invalid"
		}
	} else if res.Degraded {
		degraded = "true"
	}
	metrics.MatchRequestsTotal.WithLabelValues(status, degraded).Inc()
	metrics.MatchDuration.Observe(time.Since(started).Seconds())
}
