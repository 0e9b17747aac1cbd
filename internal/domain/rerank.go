package domain

import "context"

// OrderContext is the natural-language context sent to the rerank service.
type OrderContext struct {
	Subject     string   `json:"subject"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Goal        string   `json:"goal,omitempty"`
	Budget      string   `json:"budget"`
	Schedule    []string `json:"schedule,omitempty"`
}

// RerankCandidate is the compact candidate representation sent to the rerank
// service.
type RerankCandidate struct {
	ID              string   `json:"id"`
	Bio             string   `json:"bio"`
	Subjects        []string `json:"subjects"`
	HourlyRate      float64  `json:"hourly_rate"`
	Rating          float64  `json:"rating"`
	ExperienceYears int      `json:"experience_years"`
}

// Reranker invokes an external LLM judgment service and returns candidate
// identifiers in improved order. Implementations classify failures into the
// domain taxonomy; response-structure problems surface as ErrMalformedResponse.
type Reranker interface {
	Rerank(ctx context.Context, order OrderContext, candidates []RerankCandidate) ([]string, error)
}
