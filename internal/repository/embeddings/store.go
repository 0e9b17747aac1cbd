// Package embeddings persists entity embeddings keyed by identity and content
// hash. At most one current embedding exists per (entity, type); a stale one
// is replaced wholesale on hash mismatch.
package embeddings

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/db"
	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/metrics"
)

// store is the consumer interface for embedding persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Store is the embedding store: content-hash short-circuit reads, guarded
// writes, advisory invalidation.
type Store struct {
	db        store
	embedder  domain.Embedder
	keyPrefix string
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*entry
}

// entry serializes concurrent provider calls for one key.
type entry struct {
	wg   sync.WaitGroup
	refs int
}

// New creates an embedding store over a key-value backend and an embedding
// provider.
func New(dbStore store, embedder domain.Embedder, keyPrefix string, logger *zap.Logger) *Store {
	return &Store{
		db:        dbStore,
		embedder:  embedder,
		keyPrefix: keyPrefix,
		logger:    logger,
		locks:     make(map[string]*entry),
	}
}

type record struct {
	ContentHash string    `json:"content_hash"`
	Vector      []byte    `json:"vector"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetOrCreate returns the current embedding for the entity. A stored embedding
// whose content hash matches is returned without any external call. Otherwise
// the provider is invoked and the result persisted; concurrent callers for the
// same key wait for the winner's write instead of duplicating the provider call.
func (s *Store) GetOrCreate(
	ctx context.Context, entityID string, entityType domain.EntityType, content string,
) (domain.Embedding, error) {
	if !entityType.Valid() {
		return domain.Embedding{}, fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidRequest, entityType)
	}

	key := s.key(entityID, entityType)
	hash := domain.ContentHash(content)

	if emb, ok := s.load(ctx, key, entityID, entityType, hash); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return emb, nil
	}

	release, winner := s.acquire(key)
	defer release()

	if !winner {
		// A concurrent writer finished first; its result is authoritative.
		if emb, ok := s.load(ctx, key, entityID, entityType, hash); ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return emb, nil
		}
		// The winner failed or content changed underneath; fall through and
		// compute ourselves.
	}

	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	result, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("embed %s %s: %w", entityType, entityID, err)
	}

	emb := domain.Embedding{
		EntityID:    entityID,
		EntityType:  entityType,
		Vector:      result.Embedding,
		ContentHash: hash,
		CreatedAt:   time.Now().UTC(),
	}
	s.persist(ctx, key, emb)
	return emb, nil
}

// Invalidate drops the stored embedding so the next access recomputes it.
// Advisory: correctness is already guaranteed by the content hash check.
func (s *Store) Invalidate(ctx context.Context, entityID string, entityType domain.EntityType) error {
	if !entityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidRequest, entityType)
	}
	if err := s.db.Del(ctx, s.key(entityID, entityType)); err != nil {
		return fmt.Errorf("invalidate embedding %s %s: %w", entityType, entityID, err)
	}
	return nil
}

func (s *Store) key(entityID string, entityType domain.EntityType) string {
	return s.keyPrefix + "emb:" + string(entityType) + ":" + entityID
}

// acquire blocks until no other caller is computing this key. winner is true
// when the caller got the slot without waiting.
func (s *Store) acquire(key string) (release func(), winner bool) {
	s.mu.Lock()
	e, exists := s.locks[key]
	if !exists {
		e = &entry{}
		e.wg.Add(1)
		e.refs = 1
		s.locks[key] = e
		s.mu.Unlock()

		return func() {
			s.drop(key, e)
			e.wg.Done()
		}, true
	}

	e.refs++
	s.mu.Unlock()
	e.wg.Wait()

	return func() { s.drop(key, e) }, false
}

func (s *Store) drop(key string, e *entry) {
	s.mu.Lock()
	e.refs--
	if e.refs == 0 && s.locks[key] == e {
		delete(s.locks, key)
	}
	s.mu.Unlock()
}

func (s *Store) load(
	ctx context.Context, key, entityID string, entityType domain.EntityType, wantHash string,
) (domain.Embedding, bool) {
	data, err := s.db.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to read stored embedding", zap.String("key", key), zap.Error(err))
		}
		return domain.Embedding{}, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Failed to parse stored embedding", zap.String("key", key), zap.Error(err))
		return domain.Embedding{}, false
	}
	if rec.ContentHash != wantHash {
		return domain.Embedding{}, false
	}

	vec, err := bytesToVector(rec.Vector)
	if err != nil {
		s.logger.Warn("Corrupt stored embedding vector", zap.String("key", key), zap.Error(err))
		return domain.Embedding{}, false
	}

	return domain.Embedding{
		EntityID:    entityID,
		EntityType:  entityType,
		Vector:      vec,
		ContentHash: rec.ContentHash,
		CreatedAt:   rec.CreatedAt,
	}, true
}

func (s *Store) persist(ctx context.Context, key string, emb domain.Embedding) {
	data, err := json.Marshal(record{
		ContentHash: emb.ContentHash,
		Vector:      vectorToBytes(emb.Vector),
		CreatedAt:   emb.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("Failed to encode embedding", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.db.Set(ctx, key, data); err != nil {
		s.logger.Warn("Failed to persist embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
