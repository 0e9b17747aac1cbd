package match

import (
	"context"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

// Retriever produces filtered candidates for an order.
type Retriever interface {
	Retrieve(
		ctx context.Context, order domain.Order, filters matching.Filters, limit int,
	) ([]matching.RetrievedCandidate, error)
}

// Ranker scores candidate pairs and reports the scorer version feeding the
// request fingerprint.
type Ranker interface {
	ModelVersion() string
	ScoreAll(
		ctx context.Context, order domain.Order, tutors []domain.TutorProfile, sims []float64,
	) ([]matching.Candidate, matching.ScoreSource)
}

// RerankStage reorders the head of a ranked list, reporting whether the
// reordering was applied.
type RerankStage interface {
	Rerank(
		ctx context.Context,
		order domain.Order,
		cands []matching.Candidate,
		profiles []domain.TutorProfile,
	) ([]matching.Candidate, bool)
}

// ResultCache persists final results per fingerprint.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (matching.Result, bool)
	Put(ctx context.Context, res matching.Result) error
}
