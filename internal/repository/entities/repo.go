// Package entities reads order and tutor attributes written by the
// surrounding platform. The pipeline never writes these hashes except through
// the tutors repository upsert path.
package entities

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/matchd/internal/db"
	"github.com/kailas-cloud/matchd/internal/domain"
)

// Repo implements domain.OrderReader and domain.TutorReader over Redis hashes.
type Repo struct {
	db        db.HashStore
	keyPrefix string
}

var (
	_ domain.OrderReader = (*Repo)(nil)
	_ domain.TutorReader = (*Repo)(nil)
)

// New creates an entity attribute reader.
func New(dbStore db.HashStore, keyPrefix string) *Repo {
	return &Repo{db: dbStore, keyPrefix: keyPrefix}
}

// Order reads one order by identifier.
func (r *Repo) Order(ctx context.Context, id string) (domain.Order, error) {
	fields, err := r.db.HGetAll(ctx, r.keyPrefix+"order:"+id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("read order %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return orderFromFields(id, fields), nil
}

// Tutor reads one tutor profile by identifier.
func (r *Repo) Tutor(ctx context.Context, id string) (domain.TutorProfile, error) {
	fields, err := r.db.HGetAll(ctx, r.keyPrefix+"tutor:"+id)
	if err != nil {
		return domain.TutorProfile{}, fmt.Errorf("read tutor %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.TutorProfile{}, fmt.Errorf("tutor %s: %w", id, domain.ErrNotFound)
	}
	return tutorFromFields(id, fields), nil
}

// Tutors reads several tutor profiles in one round-trip, preserving input
// order and skipping missing identifiers.
func (r *Repo) Tutors(ctx context.Context, ids []string) ([]domain.TutorProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keyPrefix + "tutor:" + id
	}

	all, err := r.db.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read tutors: %w", err)
	}

	out := make([]domain.TutorProfile, 0, len(ids))
	for i, fields := range all {
		if len(fields) == 0 {
			continue
		}
		out = append(out, tutorFromFields(ids[i], fields))
	}
	return out, nil
}

func orderFromFields(id string, f map[string]string) domain.Order {
	return domain.Order{
		ID:          id,
		Subject:     f["subject"],
		Title:       f["title"],
		Description: f["description"],
		Goal:        f["goal"],
		BudgetMin:   parseFloat(f["budget_min"]),
		BudgetMax:   parseFloat(f["budget_max"]),
		Schedule:    splitList(f["schedule"]),
		CreatedAt:   parseUnix(f["created_at"]),
	}
}

func tutorFromFields(id string, f map[string]string) domain.TutorProfile {
	return domain.TutorProfile{
		ID:              id,
		Bio:             f["bio"],
		Subjects:        splitList(f["subjects"]),
		HourlyRate:      parseFloat(f["hourly_rate"]),
		Rating:          parseFloat(f["rating"]),
		RatingCount:     parseInt(f["rating_count"]),
		ExperienceYears: parseInt(f["experience_years"]),
		Availability:    splitList(f["availability"]),
		ResponseMinutes: parseFloat(f["response_minutes"]),
		LastActiveAt:    parseUnix(f["last_active"]),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseUnix(s string) time.Time {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
