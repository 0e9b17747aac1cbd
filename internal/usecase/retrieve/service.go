// Package retrieve turns an order into a deterministic list of candidate
// tutors via embedding lookup and filtered vector search.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

// Service resolves the order embedding and searches the tutor index with the
// request's hard filters applied at the index level.
type Service struct {
	embeddings EmbeddingStore
	index      TutorIndex
	logger     *zap.Logger
}

// NewService creates a candidate retrieval service.
func NewService(embeddings EmbeddingStore, index TutorIndex, logger *zap.Logger) *Service {
	return &Service{embeddings: embeddings, index: index, logger: logger}
}

// Retrieve returns up to limit candidates matching the filters, ordered by
// similarity descending with recency and ID tie-breaks. An empty list is a
// valid outcome, not an error.
func (s *Service) Retrieve(
	ctx context.Context, order domain.Order, filters matching.Filters, limit int,
) ([]matching.RetrievedCandidate, error) {
	emb, err := s.embeddings.GetOrCreate(ctx, order.ID, domain.EntityOrder, order.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("order %s embedding: %w", order.ID, err)
	}

	cands, err := s.index.Search(ctx, emb.Vector, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("order %s candidate search: %w", order.ID, err)
	}

	// The index returns results in score order already, but ties are broken by
	// recency and then ID so repeated runs produce identical lists.
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].Similarity != cands[b].Similarity {
			return cands[a].Similarity > cands[b].Similarity
		}
		if !cands[a].LastActiveAt.Equal(cands[b].LastActiveAt) {
			return cands[a].LastActiveAt.After(cands[b].LastActiveAt)
		}
		return cands[a].TutorID < cands[b].TutorID
	})

	s.logger.Debug("Candidates retrieved",
		zap.String("order_id", order.ID),
		zap.Int("count", len(cands)))

	return cands, nil
}
