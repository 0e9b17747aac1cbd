package ranking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/feature"
)

// twoLeafArtifact splits on similarity at 0.5: low -> 0.25, high -> 0.75.
func twoLeafArtifact() string {
	return fmt.Sprintf(`{
		"version": "2026-01-test",
		"feature_schema": %q,
		"base_score": 0.5,
		"trees": [{
			"nodes": [
				{"feature": %d, "threshold": 0.5, "left": 1, "right": 2},
				{"leaf": true, "value": 0.25},
				{"leaf": true, "value": 0.75}
			]
		}]
	}`, feature.SchemaVersion, feature.FeatSimilarity)
}

func TestParseModel_Valid(t *testing.T) {
	m, err := ParseModel([]byte(twoLeafArtifact()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Version() != "2026-01-test" {
		t.Errorf("unexpected version %q", m.Version())
	}
}

func TestParseModel_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not json"},
		{"no version", `{"feature_schema": "v1", "trees": [{"nodes": [{"leaf": true}]}]}`},
		{"no trees", `{"version": "x", "feature_schema": "v1", "trees": []}`},
		{"empty tree", `{"version": "x", "feature_schema": "v1", "trees": [{"nodes": []}]}`},
		{
			"backward child",
			`{"version": "x", "feature_schema": "v1", "trees": [{"nodes": [
				{"feature": 0, "threshold": 0.5, "left": 0, "right": 1},
				{"leaf": true, "value": 1}
			]}]}`,
		},
		{
			"feature out of schema",
			`{"version": "x", "feature_schema": "v1", "trees": [{"nodes": [
				{"feature": 99, "threshold": 0.5, "left": 1, "right": 2},
				{"leaf": true, "value": 0},
				{"leaf": true, "value": 1}
			]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseModel([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseModel_SchemaMismatch(t *testing.T) {
	data := `{"version": "x", "feature_schema": "v999", "trees": [{"nodes": [{"leaf": true}]}]}`
	_, err := ParseModel([]byte(data))
	if !errors.Is(err, domain.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestModel_Score(t *testing.T) {
	m, err := ParseModel([]byte(twoLeafArtifact()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	low := make(feature.Vector, feature.Count)
	low[feature.FeatSimilarity] = 0.2
	high := make(feature.Vector, feature.Count)
	high[feature.FeatSimilarity] = 0.8

	if got := m.Score(low); got != 0.75 {
		t.Errorf("low similarity: expected 0.75, got %v", got)
	}
	if got := m.Score(high); got != 1.25 {
		t.Errorf("high similarity: expected 1.25, got %v", got)
	}
}
