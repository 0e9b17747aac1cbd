// Package indexer keeps tutor profiles searchable: it embeds the profile text
// and writes the document plus vector into the tutor index.
package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
)

// EmbeddingStore supplies the current embedding for an entity.
type EmbeddingStore interface {
	GetOrCreate(
		ctx context.Context, entityID string, entityType domain.EntityType, content string,
	) (domain.Embedding, error)
	Invalidate(ctx context.Context, entityID string, entityType domain.EntityType) error
}

// TutorIndex persists tutor documents with their vectors.
type TutorIndex interface {
	Upsert(ctx context.Context, tutor domain.TutorProfile, vector []float32) error
}

// Service handles tutor indexing and embedding invalidation on behalf of the
// surrounding platform.
type Service struct {
	embeddings EmbeddingStore
	index      TutorIndex
	logger     *zap.Logger
}

// NewService creates an indexer service.
func NewService(embeddings EmbeddingStore, index TutorIndex, logger *zap.Logger) *Service {
	return &Service{embeddings: embeddings, index: index, logger: logger}
}

// UpsertTutor embeds the profile text and writes document and vector into the
// index. The content hash check keeps repeat upserts of an unchanged profile
// free of provider calls.
func (s *Service) UpsertTutor(ctx context.Context, tutor domain.TutorProfile) error {
	if tutor.ID == "" {
		return fmt.Errorf("%w: tutor id is required", domain.ErrInvalidRequest)
	}

	emb, err := s.embeddings.GetOrCreate(ctx, tutor.ID, domain.EntityTutor, tutor.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed tutor %s: %w", tutor.ID, err)
	}
	if err := s.index.Upsert(ctx, tutor, emb.Vector); err != nil {
		return err
	}

	s.logger.Debug("Tutor indexed", zap.String("tutor_id", tutor.ID))
	return nil
}

// Invalidate drops the stored embedding for an entity so the next access
// recomputes it. Cached match results are left to expire by TTL.
func (s *Service) Invalidate(ctx context.Context, entityID string, entityType domain.EntityType) error {
	return s.embeddings.Invalidate(ctx, entityID, entityType)
}
