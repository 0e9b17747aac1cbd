package rerank

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

// --- Mocks ---

type mockReranker struct {
	calls   int
	results []mockResult // consumed per attempt; last entry repeats
}

type mockResult struct {
	ids []string
	err error
}

func (m *mockReranker) Rerank(
	_ context.Context, _ domain.OrderContext, _ []domain.RerankCandidate,
) ([]string, error) {
	i := m.calls
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	m.calls++
	r := m.results[i]
	return r.ids, r.err
}

// --- Tests ---

func testCandidates() []matching.Candidate {
	return []matching.Candidate{
		{TutorID: "a", Similarity: 0.9, RankScore: 0.8},
		{TutorID: "b", Similarity: 0.8, RankScore: 0.7},
		{TutorID: "c", Similarity: 0.7, RankScore: 0.6},
	}
}

func testProfiles() []domain.TutorProfile {
	return []domain.TutorProfile{
		{ID: "a", Bio: "tutor a", Subjects: []string{"math"}},
		{ID: "b", Bio: "tutor b", Subjects: []string{"math"}},
		{ID: "c", Bio: "tutor c", Subjects: []string{"math"}},
	}
}

func testOrder() domain.Order {
	return domain.Order{ID: "order-1", Subject: "math", BudgetMin: 20, BudgetMax: 50}
}

func newService(r domain.Reranker) *Service {
	return NewService(r, testPolicy(), zap.NewNop())
}

func TestRerank_Success(t *testing.T) {
	mock := &mockReranker{results: []mockResult{{ids: []string{"c", "a", "b"}}}}
	svc := newService(mock)

	out, ok := svc.Rerank(context.Background(), testOrder(), testCandidates(), testProfiles())
	if !ok {
		t.Fatal("expected rerank to apply")
	}
	if out[0].TutorID != "c" || out[1].TutorID != "a" || out[2].TutorID != "b" {
		t.Errorf("unexpected order: %s, %s, %s", out[0].TutorID, out[1].TutorID, out[2].TutorID)
	}
	if out[0].RerankPosition == nil || *out[0].RerankPosition != 2 {
		t.Errorf("expected pre-rerank position 2 for c, got %v", out[0].RerankPosition)
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", mock.calls)
	}
}

func TestRerank_TransientRetriedThenSucceeds(t *testing.T) {
	mock := &mockReranker{results: []mockResult{
		{err: domain.ErrTransient},
		{ids: []string{"b", "a", "c"}},
	}}
	svc := newService(mock)

	out, ok := svc.Rerank(context.Background(), testOrder(), testCandidates(), testProfiles())
	if !ok {
		t.Fatal("expected rerank to apply after retry")
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", mock.calls)
	}
	if out[0].TutorID != "b" {
		t.Errorf("unexpected head %s", out[0].TutorID)
	}
}

func TestRerank_MalformedNeverRetried(t *testing.T) {
	mock := &mockReranker{results: []mockResult{{err: domain.ErrMalformedResponse}}}
	svc := newService(mock)

	in := testCandidates()
	out, ok := svc.Rerank(context.Background(), testOrder(), in, testProfiles())
	if ok {
		t.Fatal("expected fallback")
	}
	if mock.calls != 1 {
		t.Errorf("malformed response must not be retried, got %d attempts", mock.calls)
	}
	for i := range in {
		if out[i].TutorID != in[i].TutorID {
			t.Errorf("position %d: input order must be preserved", i)
		}
		if out[i].RerankPosition != nil {
			t.Errorf("position %d: no rerank position on fallback", i)
		}
	}
}

func TestRerank_AttemptsExhausted(t *testing.T) {
	mock := &mockReranker{results: []mockResult{{err: domain.ErrTransient}}}
	svc := newService(mock)

	_, ok := svc.Rerank(context.Background(), testOrder(), testCandidates(), testProfiles())
	if ok {
		t.Fatal("expected fallback")
	}
	if mock.calls != testPolicy().MaxAttempts {
		t.Errorf("expected %d attempts, got %d", testPolicy().MaxAttempts, mock.calls)
	}
}

func TestRerank_TotalBudgetCeiling(t *testing.T) {
	mock := &mockReranker{results: []mockResult{
		// Reset hint far beyond the total budget: the second attempt must
		// never start.
		{err: domain.NewRateLimit(time.Minute)},
	}}
	svc := newService(mock)

	started := time.Now()
	_, ok := svc.Rerank(context.Background(), testOrder(), testCandidates(), testProfiles())
	elapsed := time.Since(started)

	if ok {
		t.Fatal("expected fallback")
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 attempt before budget exhaustion, got %d", mock.calls)
	}
	if elapsed > 2*testPolicy().TotalBudget {
		t.Errorf("stage exceeded its wall-clock budget: %v", elapsed)
	}
}

func TestRerank_InvalidPermutations(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"missing id", []string{"a", "b"}},
		{"unknown id", []string{"a", "b", "zzz"}},
		{"duplicate id", []string{"a", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockReranker{results: []mockResult{{ids: tt.ids}}}
			svc := newService(mock)

			in := testCandidates()
			out, ok := svc.Rerank(context.Background(), testOrder(), in, testProfiles())
			if ok {
				t.Fatal("expected fallback")
			}
			for i := range in {
				if out[i].TutorID != in[i].TutorID {
					t.Errorf("position %d: input order must be preserved", i)
				}
			}
		})
	}
}

func TestRerank_MissingProfileFailsStage(t *testing.T) {
	mock := &mockReranker{results: []mockResult{{ids: []string{"a", "b", "c"}}}}
	svc := newService(mock)

	_, ok := svc.Rerank(context.Background(), testOrder(), testCandidates(), testProfiles()[:2])
	if ok {
		t.Fatal("expected fallback when a profile is missing")
	}
	if mock.calls != 0 {
		t.Errorf("provider must not be called without a full payload, got %d", mock.calls)
	}
}
