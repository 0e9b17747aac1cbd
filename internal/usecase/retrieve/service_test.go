package retrieve

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

// --- Mocks ---

type mockEmbeddings struct {
	emb     domain.Embedding
	err     error
	content string
}

func (m *mockEmbeddings) GetOrCreate(
	_ context.Context, entityID string, entityType domain.EntityType, content string,
) (domain.Embedding, error) {
	m.content = content
	if m.err != nil {
		return domain.Embedding{}, m.err
	}
	emb := m.emb
	emb.EntityID = entityID
	emb.EntityType = entityType
	return emb, nil
}

type mockIndex struct {
	hits   []matching.RetrievedCandidate
	err    error
	vector []float32
	limit  int
}

func (m *mockIndex) Search(
	_ context.Context, vector []float32, _ matching.Filters, limit int,
) ([]matching.RetrievedCandidate, error) {
	m.vector = vector
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

// --- Tests ---

func testOrder() domain.Order {
	return domain.Order{
		ID:          "order-1",
		Subject:     "math",
		Title:       "Algebra exam prep",
		Description: "Quadratic equations",
	}
}

func TestRetrieve_UsesOrderEmbedding(t *testing.T) {
	emb := &mockEmbeddings{emb: domain.Embedding{Vector: []float32{0.5, 0.5}}}
	idx := &mockIndex{hits: []matching.RetrievedCandidate{{TutorID: "a", Similarity: 0.9}}}
	svc := NewService(emb, idx, zap.NewNop())

	hits, err := svc.Retrieve(context.Background(), testOrder(), matching.Filters{Subject: "math"}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].TutorID != "a" {
		t.Errorf("unexpected hits %+v", hits)
	}
	if emb.content != testOrder().EmbeddingText() {
		t.Errorf("expected canonical embedding text, got %q", emb.content)
	}
	if len(idx.vector) != 2 || idx.limit != 50 {
		t.Errorf("unexpected search input: vector %v, limit %d", idx.vector, idx.limit)
	}
}

func TestRetrieve_EmbeddingFailurePropagates(t *testing.T) {
	emb := &mockEmbeddings{err: domain.ErrEmbeddingUnavailable}
	svc := NewService(emb, &mockIndex{}, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), testOrder(), matching.Filters{Subject: "math"}, 50)
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestRetrieve_SearchFailurePropagates(t *testing.T) {
	emb := &mockEmbeddings{emb: domain.Embedding{Vector: []float32{1}}}
	idx := &mockIndex{err: errors.New("index offline")}
	svc := NewService(emb, idx, zap.NewNop())

	if _, err := svc.Retrieve(context.Background(), testOrder(), matching.Filters{Subject: "math"}, 50); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetrieve_EmptyIsValid(t *testing.T) {
	emb := &mockEmbeddings{emb: domain.Embedding{Vector: []float32{1}}}
	svc := NewService(emb, &mockIndex{}, zap.NewNop())

	hits, err := svc.Retrieve(context.Background(), testOrder(), matching.Filters{Subject: "math"}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestRetrieve_DeterministicOrder(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	emb := &mockEmbeddings{emb: domain.Embedding{Vector: []float32{1}}}
	idx := &mockIndex{hits: []matching.RetrievedCandidate{
		{TutorID: "c", Similarity: 0.8, LastActiveAt: now},
		{TutorID: "a", Similarity: 0.8, LastActiveAt: now.Add(time.Hour)},
		{TutorID: "b", Similarity: 0.9, LastActiveAt: now},
		{TutorID: "d", Similarity: 0.8, LastActiveAt: now},
	}}
	svc := NewService(emb, idx, zap.NewNop())

	hits, err := svc.Retrieve(context.Background(), testOrder(), matching.Filters{Subject: "math"}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"b", "a", "c", "d"}
	for i, id := range want {
		if hits[i].TutorID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, hits[i].TutorID)
		}
	}
}
