package matching

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/matchd/internal/domain"
)

func validFilters() Filters {
	return Filters{
		Subject:   "math",
		BudgetMin: 20,
		BudgetMax: 50,
		Schedule:  []string{"mon_evening", "wed_evening"},
	}
}

func TestNewRequest_Valid(t *testing.T) {
	req, err := NewRequest("order-1", validFilters(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.OrderID != "order-1" || req.TopK != 5 {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestNewRequest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
		mutate  func(*Filters)
		topK    int
	}{
		{"empty order id", "", func(f *Filters) {}, 5},
		{"zero top_k", "order-1", func(f *Filters) {}, 0},
		{"negative top_k", "order-1", func(f *Filters) {}, -3},
		{"missing subject", "order-1", func(f *Filters) { f.Subject = "" }, 5},
		{"negative budget min", "order-1", func(f *Filters) { f.BudgetMin = -1 }, 5},
		{"inverted budget", "order-1", func(f *Filters) { f.BudgetMin = 80 }, 5},
		{"unknown slot", "order-1", func(f *Filters) { f.Schedule = []string{"mon_midnight"} }, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFilters()
			tt.mutate(&f)
			_, err := NewRequest(tt.orderID, f, tt.topK)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestNewRequest_OpenBudgetMax(t *testing.T) {
	f := validFilters()
	f.BudgetMax = 0 // no ceiling
	f.BudgetMin = 30
	if _, err := NewRequest("order-1", f, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a, _ := NewRequest("order-1", validFilters(), 5)
	b, _ := NewRequest("order-1", validFilters(), 5)
	a.ModelVersion = "m1"
	b.ModelVersion = "m1"

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal requests must produce equal fingerprints")
	}
}

func TestFingerprint_ScheduleOrderInsensitive(t *testing.T) {
	fa := validFilters()
	fa.Schedule = []string{"wed_evening", "mon_evening"}
	a, _ := NewRequest("order-1", fa, 5)
	b, _ := NewRequest("order-1", validFilters(), 5)

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("schedule slot order must not change the fingerprint")
	}
}

func TestFingerprint_SubjectCaseInsensitive(t *testing.T) {
	fa := validFilters()
	fa.Subject = "Math"
	a, _ := NewRequest("order-1", fa, 5)
	b, _ := NewRequest("order-1", validFilters(), 5)

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("subject case must not change the fingerprint")
	}
}

func TestFingerprint_SensitiveToInputs(t *testing.T) {
	base, _ := NewRequest("order-1", validFilters(), 5)
	base.ModelVersion = "m1"

	variants := []Request{}

	r, _ := NewRequest("order-2", validFilters(), 5)
	variants = append(variants, r)

	f := validFilters()
	f.BudgetMax = 60
	r, _ = NewRequest("order-1", f, 5)
	variants = append(variants, r)

	r, _ = NewRequest("order-1", validFilters(), 6)
	variants = append(variants, r)

	r, _ = NewRequest("order-1", validFilters(), 5)
	r.ModelVersion = "m2"
	variants = append(variants, r)

	for i, v := range variants {
		if v.ModelVersion == "" {
			v.ModelVersion = "m1"
		}
		if v.Fingerprint() == base.Fingerprint() {
			t.Errorf("variant %d: fingerprint must differ from base", i)
		}
	}
}

func TestWorstReason(t *testing.T) {
	tests := []struct {
		name    string
		reasons []DegradedReason
		want    DegradedReason
	}{
		{"empty", nil, ""},
		{"single", []DegradedReason{DegradedRerankUnavailable}, DegradedRerankUnavailable},
		{
			"embedding wins",
			[]DegradedReason{DegradedRerankUnavailable, DegradedEmbeddingUnavailable},
			DegradedEmbeddingUnavailable,
		},
		{
			"model beats rerank",
			[]DegradedReason{DegradedRerankUnavailable, DegradedModelUnavailable},
			DegradedModelUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorstReason(tt.reasons); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
