package matching

import "github.com/kailas-cloud/matchd/internal/domain/feature"

// ScoreSource records which scorer produced a candidate's rank score.
type ScoreSource string

const (
	// ScoreSourceModel means the trained ranking artifact scored the candidate.
	ScoreSourceModel ScoreSource = "model"
	// ScoreSourceHeuristic means the fallback linear scorer was used.
	ScoreSourceHeuristic ScoreSource = "heuristic"
)

// Candidate is one scored tutor within a match result. Transient: constructed
// per request and persisted only as part of a Result.
type Candidate struct {
	TutorID        string         `json:"tutor_id"`
	Similarity     float64        `json:"similarity"`
	Features       feature.Vector `json:"features,omitempty"`
	RankScore      float64        `json:"rank_score"`
	Source         ScoreSource    `json:"score_source"`
	RerankPosition *int           `json:"rerank_position,omitempty"`
}
