package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EntityType distinguishes the two embeddable entity kinds.
type EntityType string

const (
	// EntityOrder is a student service request.
	EntityOrder EntityType = "order"
	// EntityTutor is a tutor profile.
	EntityTutor EntityType = "tutor"
)

// Valid reports whether the entity type is known.
func (t EntityType) Valid() bool {
	return t == EntityOrder || t == EntityTutor
}

// Embedding is the current stored vector for one (entity, type) pair.
// It is valid only while ContentHash matches the hash of the source content;
// a stale embedding is replaced wholesale, never mutated in place.
type Embedding struct {
	EntityID    string
	EntityType  EntityType
	Vector      []float32
	ContentHash string
	CreatedAt   time.Time
}

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ContentHash returns the hex SHA-256 of source content, used to detect
// whether a stored embedding is stale.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
