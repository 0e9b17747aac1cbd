package domain

import (
	"context"
	"strings"
	"time"
)

// Order is a student service request, read-only from the matching pipeline's
// point of view. Attributes are owned by the surrounding platform.
type Order struct {
	ID          string
	Subject     string
	Title       string
	Description string
	Goal        string
	BudgetMin   float64
	BudgetMax   float64
	Schedule    []string
	CreatedAt   time.Time
}

// EmbeddingText is the canonical text an order is embedded from.
func (o Order) EmbeddingText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{o.Title, o.Description, o.Goal} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// TutorProfile holds the tutor attributes the pipeline reads. ResponseMinutes
// is the median first-response latency; zero means "no data yet".
type TutorProfile struct {
	ID              string
	Bio             string
	Subjects        []string
	HourlyRate      float64
	Rating          float64
	RatingCount     int
	ExperienceYears int
	Availability    []string
	ResponseMinutes float64
	LastActiveAt    time.Time
}

// EmbeddingText is the canonical text a tutor profile is embedded from.
func (t TutorProfile) EmbeddingText() string {
	parts := make([]string, 0, 2)
	if len(t.Subjects) > 0 {
		parts = append(parts, strings.Join(t.Subjects, ", "))
	}
	if t.Bio != "" {
		parts = append(parts, t.Bio)
	}
	return strings.Join(parts, "\n")
}

// Teaches reports whether the tutor covers the given subject.
func (t TutorProfile) Teaches(subject string) bool {
	for _, s := range t.Subjects {
		if strings.EqualFold(s, subject) {
			return true
		}
	}
	return false
}

// OrderReader reads order attributes by identifier.
type OrderReader interface {
	Order(ctx context.Context, id string) (Order, error)
}

// TutorReader reads tutor attributes by identifier.
type TutorReader interface {
	Tutor(ctx context.Context, id string) (TutorProfile, error)
	Tutors(ctx context.Context, ids []string) ([]TutorProfile, error)
}
