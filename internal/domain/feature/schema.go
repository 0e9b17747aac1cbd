// Package feature computes the fixed-schema numeric feature vector for one
// (order, tutor) candidate pair. Feature positions are tied to SchemaVersion;
// a ranking artifact trained against a different version must be rejected at
// load time, never silently misread.
package feature

// SchemaVersion identifies the feature layout below. Bump on any change to
// feature count, order, or semantics.
const SchemaVersion = "v1"

// Feature positions in the v1 layout.
const (
	FeatSimilarity      = iota // cosine similarity, [-1, 1]
	FeatHourlyRate             // raw hourly rate
	FeatPriceRatio             // rate / budget_max
	FeatWithinBudget           // 1 if budget_min <= rate <= budget_max
	FeatPriceGap               // (budget_max - rate) / budget_max, clamped to [-1, 1]
	FeatRating                 // average rating, [0, 5]; NeutralRating if unrated
	FeatRatingCount            // number of ratings
	FeatExperience             // years of experience
	FeatScheduleOverlap        // fraction of requested slots the tutor covers
	FeatSubjectMatch           // 1 if the tutor teaches the order's subject
	FeatResponseSpeed          // 1 - response_minutes/720, clamped; NeutralResponseSpeed if unknown

	// Count is the fixed vector length for SchemaVersion.
	Count
)

// Neutral sentinels for missing structured attributes. Explicit values, so the
// model never receives an accidental zero for "unknown".
const (
	// NeutralRating stands in for tutors with no ratings yet.
	NeutralRating = 3.0
	// NeutralScheduleOverlap stands in when either side declares no schedule.
	NeutralScheduleOverlap = 0.5
	// NeutralResponseSpeed stands in for tutors with no response history.
	NeutralResponseSpeed = 0.5
)

// Vector is one candidate's feature vector in SchemaVersion layout.
type Vector []float64

var names = [Count]string{
	FeatSimilarity:      "similarity",
	FeatHourlyRate:      "hourly_rate",
	FeatPriceRatio:      "price_ratio",
	FeatWithinBudget:    "within_budget",
	FeatPriceGap:        "price_gap",
	FeatRating:          "rating",
	FeatRatingCount:     "rating_count",
	FeatExperience:      "experience_years",
	FeatScheduleOverlap: "schedule_overlap",
	FeatSubjectMatch:    "subject_match",
	FeatResponseSpeed:   "response_speed",
}

// Names returns the ordered feature names for SchemaVersion.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}
