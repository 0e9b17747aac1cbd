package matching

import "time"

// DegradedReason identifies which fallback path produced a degraded result.
type DegradedReason string

const (
	// DegradedEmbeddingUnavailable means the order's own embedding could not be produced.
	DegradedEmbeddingUnavailable DegradedReason = "embedding_unavailable"
	// DegradedModelUnavailable means candidates were scored by the heuristic fallback.
	DegradedModelUnavailable DegradedReason = "model_unavailable"
	// DegradedRerankUnavailable means the rerank stage failed and the
	// pre-rerank ordering was kept.
	DegradedRerankUnavailable DegradedReason = "rerank_unavailable"
)

// severity orders reasons for reporting when several stages degrade at once.
// Earlier entries win.
var severity = []DegradedReason{
	DegradedEmbeddingUnavailable,
	DegradedModelUnavailable,
	DegradedRerankUnavailable,
}

// WorstReason picks the highest-severity reason from the given set.
func WorstReason(reasons []DegradedReason) DegradedReason {
	for _, s := range severity {
		for _, r := range reasons {
			if r == s {
				return s
			}
		}
	}
	return ""
}

// Result is the final ranked outcome for one fingerprint. Immutable after
// creation: a refresh produces a new Result under the same fingerprint.
// Candidates are sorted by final rank and len(Candidates) <= the request's
// top_k. An empty candidate list is a correct terminal outcome, not a failure.
type Result struct {
	Fingerprint    string         `json:"fingerprint"`
	Candidates     []Candidate    `json:"candidates"`
	ComputedAt     time.Time      `json:"computed_at"`
	TTL            time.Duration  `json:"ttl"`
	Degraded       bool           `json:"degraded"`
	DegradedReason DegradedReason `json:"degraded_reason,omitempty"`
}
