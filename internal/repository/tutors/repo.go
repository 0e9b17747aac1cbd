// Package tutors owns the tutor vector index: document upserts and filtered
// KNN retrieval.
package tutors

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/matchd/internal/db"
	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

const indexName = "idx:tutors"

// store is the consumer interface for tutor index operations (ISP).
type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Repo persists tutor documents and serves filtered vector retrieval.
type Repo struct {
	db        store
	keyPrefix string
	vectorDim int

	hnswM           int
	hnswEFConstruct int
}

// New creates a tutor repository.
func New(dbStore store, keyPrefix string, vectorDim int) *Repo {
	return &Repo{db: dbStore, keyPrefix: keyPrefix, vectorDim: vectorDim}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(m, efConstruct int) *Repo {
	r.hnswM = m
	r.hnswEFConstruct = efConstruct
	return r
}

// EnsureIndex creates the tutor FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.db.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe tutor index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{r.keyPrefix + "tutor:"},
		Fields: []db.IndexField{
			{Name: "subjects", Type: db.IndexFieldTag, TagSeparator: ","},
			{Name: "availability", Type: db.IndexFieldTag, TagSeparator: ","},
			{Name: "hourly_rate", Type: db.IndexFieldNumeric},
			{Name: "last_active", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnswM,
				VectorEFConstruct: r.hnswEFConstruct,
			},
		},
	}

	if err := r.db.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create tutor index: %w", err)
	}
	return nil
}

// Upsert writes the tutor document plus its profile vector into the index.
// Called by the surrounding platform whenever a tutor profile changes.
func (r *Repo) Upsert(ctx context.Context, tutor domain.TutorProfile, vector []float32) error {
	if len(vector) != r.vectorDim {
		return fmt.Errorf("tutor %s: vector dim %d, index expects %d", tutor.ID, len(vector), r.vectorDim)
	}

	fields := map[string]string{
		"bio":              tutor.Bio,
		"subjects":         strings.Join(lowerAll(tutor.Subjects), ","),
		"availability":     strings.Join(tutor.Availability, ","),
		"hourly_rate":      strconv.FormatFloat(tutor.HourlyRate, 'f', -1, 64),
		"rating":           strconv.FormatFloat(tutor.Rating, 'f', -1, 64),
		"rating_count":     strconv.Itoa(tutor.RatingCount),
		"experience_years": strconv.Itoa(tutor.ExperienceYears),
		"response_minutes": strconv.FormatFloat(tutor.ResponseMinutes, 'f', -1, 64),
		"last_active":      strconv.FormatInt(tutor.LastActiveAt.Unix(), 10),
		"vector":           vectorToBytes(vector),
	}

	if err := r.db.HSet(ctx, r.keyPrefix+"tutor:"+tutor.ID, fields); err != nil {
		return fmt.Errorf("upsert tutor %s: %w", tutor.ID, err)
	}
	return nil
}

// Search runs a filtered KNN query. All filters are hard constraints applied
// before the KNN clause; an empty result is a valid outcome, not an error.
func (r *Repo) Search(
	ctx context.Context, vector []float32, filters matching.Filters, limit int,
) ([]matching.RetrievedCandidate, error) {
	res, err := r.db.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            limit,
		Prefilter:    buildPrefilter(filters),
		ReturnFields: []string{"last_active"},
	})
	if err != nil {
		return nil, fmt.Errorf("tutor knn search: %w", err)
	}

	hits := make([]matching.RetrievedCandidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, r.keyPrefix+"tutor:")
		hit := matching.RetrievedCandidate{TutorID: id, Similarity: e.Score}
		if ts, err := strconv.ParseInt(e.Fields["last_active"], 10, 64); err == nil {
			hit.LastActiveAt = time.Unix(ts, 0).UTC()
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildPrefilter renders the hard constraints as an FT query expression.
func buildPrefilter(f matching.Filters) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("@subjects:{%s}", escapeTag(strings.ToLower(f.Subject))))

	if f.BudgetMax > 0 {
		parts = append(parts, fmt.Sprintf("@hourly_rate:[%s %s]",
			formatBound(f.BudgetMin), formatBound(f.BudgetMax)))
	} else if f.BudgetMin > 0 {
		parts = append(parts, fmt.Sprintf("@hourly_rate:[%s +inf]", formatBound(f.BudgetMin)))
	}

	if len(f.Schedule) > 0 {
		escaped := make([]string, len(f.Schedule))
		for i, slot := range f.Schedule {
			escaped[i] = escapeTag(slot)
		}
		parts = append(parts, fmt.Sprintf("@availability:{%s}", strings.Join(escaped, "|")))
	}

	return strings.Join(parts, " ")
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeTag escapes FT tag query special characters.
func escapeTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ',', '.', '<', '>', '{', '}', '[', ']', '"', '\'', ':', ';',
			'!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '-', '+',
			'=', '~', '|', ' ', '/', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
