package matching

import "time"

// RetrievedCandidate is one similarity hit from the candidate retriever,
// before feature extraction and scoring. LastActiveAt is the deterministic
// secondary sort key for similarity ties.
type RetrievedCandidate struct {
	TutorID      string
	Similarity   float64
	LastActiveAt time.Time
}
