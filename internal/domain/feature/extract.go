package feature

import (
	"fmt"

	"github.com/kailas-cloud/matchd/internal/domain"
)

// CheckSchema verifies that a model artifact's expected schema matches this
// package. A mismatch is a configuration error and must fail fast.
func CheckSchema(artifactSchema string) error {
	if artifactSchema != SchemaVersion {
		return fmt.Errorf("%w: artifact expects %q, extractor produces %q",
			domain.ErrSchemaMismatch, artifactSchema, SchemaVersion)
	}
	return nil
}

// Extract derives the v1 feature vector for one candidate pair. Deterministic:
// the same entity state and similarity always yield the same vector.
func Extract(order domain.Order, tutor domain.TutorProfile, similarity float64) Vector {
	v := make(Vector, Count)

	v[FeatSimilarity] = clamp(similarity, -1, 1)
	v[FeatHourlyRate] = tutor.HourlyRate

	budgetMax := order.BudgetMax
	if budgetMax <= 0 {
		budgetMax = 1
	}
	v[FeatPriceRatio] = tutor.HourlyRate / budgetMax
	if order.BudgetMin <= tutor.HourlyRate && tutor.HourlyRate <= order.BudgetMax {
		v[FeatWithinBudget] = 1
	}
	v[FeatPriceGap] = clamp((budgetMax-tutor.HourlyRate)/budgetMax, -1, 1)

	if tutor.RatingCount > 0 {
		v[FeatRating] = tutor.Rating
	} else {
		v[FeatRating] = NeutralRating
	}
	v[FeatRatingCount] = float64(tutor.RatingCount)
	v[FeatExperience] = float64(tutor.ExperienceYears)

	v[FeatScheduleOverlap] = ScheduleOverlap(order.Schedule, tutor.Availability)

	if tutor.Teaches(order.Subject) {
		v[FeatSubjectMatch] = 1
	}

	if tutor.ResponseMinutes > 0 {
		v[FeatResponseSpeed] = clamp(1-tutor.ResponseMinutes/720, 0, 1)
	} else {
		v[FeatResponseSpeed] = NeutralResponseSpeed
	}

	return v
}

// ScheduleOverlap returns the fraction of requested slots the tutor covers.
// Either side declaring no schedule yields the neutral sentinel.
func ScheduleOverlap(requested, available []string) float64 {
	if len(requested) == 0 || len(available) == 0 {
		return NeutralScheduleOverlap
	}
	avail := make(map[string]struct{}, len(available))
	for _, s := range available {
		avail[s] = struct{}{}
	}
	matched := 0
	for _, s := range requested {
		if _, ok := avail[s]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(requested))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
