package retrieve

import (
	"context"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

// EmbeddingStore supplies the current embedding for an entity, creating it on
// content hash mismatch.
type EmbeddingStore interface {
	GetOrCreate(
		ctx context.Context, entityID string, entityType domain.EntityType, content string,
	) (domain.Embedding, error)
}

// TutorIndex serves filtered vector similarity search over tutor profiles.
type TutorIndex interface {
	Search(
		ctx context.Context, vector []float32, filters matching.Filters, limit int,
	) ([]matching.RetrievedCandidate, error)
}
