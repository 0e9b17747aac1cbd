package indexer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
)

// --- Mocks ---

type mockEmbeddings struct {
	emb         domain.Embedding
	err         error
	content     string
	invalidated []string
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

func (m *mockEmbeddings) Invalidate(_ context.Context, entityID string, entityType domain.EntityType) error {
	m.invalidated = append(m.invalidated, string(entityType)+":"+entityID)
	return m.err
}

type mockIndex struct {
	err    error
	tutor  domain.TutorProfile
	vector []float32
	calls  int
}

func (m *mockIndex) Upsert(_ context.Context, tutor domain.TutorProfile, vector []float32) error {
	m.calls++
	m.tutor = tutor
	m.vector = vector
	return m.err
}

// --- Tests ---

func testTutor() domain.TutorProfile {
	return domain.TutorProfile{
		ID:         "tutor-1",
		Subjects:   []string{"math", "physics"},
		HourlyRate: 40,
		Bio:        "Ten years of exam prep",
	}
}

func TestUpsertTutor(t *testing.T) {
	emb := &mockEmbeddings{emb: domain.Embedding{Vector: []float32{0.1, 0.2}}}
	idx := &mockIndex{}
	svc := NewService(emb, idx, zap.NewNop())

	if err := svc.UpsertTutor(context.Background(), testTutor()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.content != testTutor().EmbeddingText() {
		t.Errorf("expected canonical embedding text, got %q", emb.content)
	}
	if idx.calls != 1 || idx.tutor.ID != "tutor-1" {
		t.Errorf("unexpected index write: calls %d, tutor %+v", idx.calls, idx.tutor)
	}
	if len(idx.vector) != 2 {
		t.Errorf("expected vector forwarded, got %v", idx.vector)
	}
}

func TestUpsertTutor_MissingID(t *testing.T) {
	idx := &mockIndex{}
	svc := NewService(&mockEmbeddings{}, idx, zap.NewNop())

	err := svc.UpsertTutor(context.Background(), domain.TutorProfile{Subjects: []string{"math"}})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if idx.calls != 0 {
		t.Error("index must not be touched for invalid input")
	}
}

func TestUpsertTutor_EmbeddingFailure(t *testing.T) {
	emb := &mockEmbeddings{err: domain.ErrEmbeddingUnavailable}
	idx := &mockIndex{}
	svc := NewService(emb, idx, zap.NewNop())

	err := svc.UpsertTutor(context.Background(), testTutor())
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if idx.calls != 0 {
		t.Error("index must not be written when embedding fails")
	}
}

func TestUpsertTutor_IndexFailure(t *testing.T) {
	emb := &mockEmbeddings{emb: domain.Embedding{Vector: []float32{1}}}
	idx := &mockIndex{err: errors.New("write failed")}
	svc := NewService(emb, idx, zap.NewNop())

	if err := svc.UpsertTutor(context.Background(), testTutor()); err == nil {
		t.Fatal("expected error")
	}
}

func TestInvalidate(t *testing.T) {
	emb := &mockEmbeddings{}
	svc := NewService(emb, &mockIndex{}, zap.NewNop())

	if err := svc.Invalidate(context.Background(), "order-1", domain.EntityOrder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.invalidated) != 1 || emb.invalidated[0] != "order:order-1" {
		t.Errorf("unexpected invalidations %v", emb.invalidated)
	}
}
