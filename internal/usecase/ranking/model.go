// Package ranking scores candidate pairs with a versioned gradient-boosted
// tree artifact, falling back to a deterministic heuristic when no artifact
// is loaded.
package ranking

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/matchd/internal/domain/feature"
)

// node is one decision node in flat-array form. Leaves carry Value; internal
// nodes route on Feature < Threshold.
type node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// artifact is the on-disk model format produced by the offline trainer.
type artifact struct {
	Version       string  `json:"version"`
	FeatureSchema string  `json:"feature_schema"`
	BaseScore     float64 `json:"base_score"`
	Trees         []tree  `json:"trees"`
}

// Model is an immutable, loaded ranking artifact. Scoring is stateless and
// safe for concurrent use; a new version is a new Model swapped in whole.
type Model struct {
	version   string
	baseScore float64
	trees     []tree
}

// ParseModel decodes and validates a model artifact. The artifact's feature
// schema must match the extractor's; a mismatch is a configuration error.
func ParseModel(data []byte) (*Model, error) {
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if art.Version == "" {
		return nil, fmt.Errorf("model artifact has no version")
	}
	if err := feature.CheckSchema(art.FeatureSchema); err != nil {
		return nil, err
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("model artifact %s has no trees", art.Version)
	}
	for ti, t := range art.Trees {
		if err := validateTree(t); err != nil {
			return nil, fmt.Errorf("model artifact %s tree %d: %w", art.Version, ti, err)
		}
	}
	return &Model{version: art.Version, baseScore: art.BaseScore, trees: art.Trees}, nil
}

func validateTree(t tree) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= feature.Count {
			return fmt.Errorf("node %d references feature %d outside schema (%d features)",
				i, n.Feature, feature.Count)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has out-of-range children (%d, %d)", i, n.Left, n.Right)
		}
	}
	return nil
}

// Version returns the artifact version.
func (m *Model) Version() string { return m.version }

// Score maps a feature vector to a relevance score: base score plus the sum
// of per-tree leaf values.
func (m *Model) Score(v feature.Vector) float64 {
	score := m.baseScore
	for _, t := range m.trees {
		score += evalTree(t, v)
	}
	return score
}

func evalTree(t tree, v feature.Vector) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if v[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
