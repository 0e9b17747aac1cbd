package ranking

import (
	"context"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
	"github.com/kailas-cloud/matchd/internal/domain/feature"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
	"github.com/kailas-cloud/matchd/internal/metrics"
)

// Service extracts features and scores candidates. A shared bounded worker
// pool fans candidate scoring out across requests.
type Service struct {
	loader *Loader
	pool   *ants.Pool
	logger *zap.Logger
}

// NewService creates a ranking service with a scoring pool of the given size.
func NewService(loader *Loader, poolSize int, logger *zap.Logger) (*Service, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Service{loader: loader, pool: pool, logger: logger}, nil
}

// Close releases the scoring pool.
func (s *Service) Close() {
	s.pool.Release()
}

// ModelVersion reports the scorer version used for fingerprinting.
func (s *Service) ModelVersion() string {
	return s.loader.Version()
}

// ScoreAll extracts features and scores every (order, tutor) pair, returning
// candidates sorted by rank score descending with deterministic tie-breaks.
// The model handle is captured once, so all candidates within one request are
// scored by the same version. tutors[i] pairs with sims[i].
func (s *Service) ScoreAll(
	ctx context.Context, order domain.Order, tutors []domain.TutorProfile, sims []float64,
) ([]matching.Candidate, matching.ScoreSource) {
	model := s.loader.Current()
	source := matching.ScoreSourceModel
	if model == nil {
		source = matching.ScoreSourceHeuristic
	}

	cands := make([]matching.Candidate, len(tutors))

	var wg sync.WaitGroup
	for i := range tutors {
		wg.Add(1)
		task := func(i int) func() {
			return func() {
				defer wg.Done()
				cands[i] = scoreOne(order, tutors[i], sims[i], model, source)
			}
		}(i)
		if err := s.pool.Submit(task); err != nil {
			// Pool saturated or released; score inline rather than fail.
			task()
		}
	}
	wg.Wait()

	metrics.RankingScoreSource.WithLabelValues(string(source)).Add(float64(len(cands)))

	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].RankScore != cands[b].RankScore {
			return cands[a].RankScore > cands[b].RankScore
		}
		if cands[a].Similarity != cands[b].Similarity {
			return cands[a].Similarity > cands[b].Similarity
		}
		return cands[a].TutorID < cands[b].TutorID
	})

	return cands, source
}

func scoreOne(
	order domain.Order, tutor domain.TutorProfile, sim float64,
	model *Model, source matching.ScoreSource,
) matching.Candidate {
	vec := feature.Extract(order, tutor, sim)

	var score float64
	if source == matching.ScoreSourceModel {
		score = model.Score(vec)
	} else {
		score = HeuristicScore(vec)
	}

	return matching.Candidate{
		TutorID:    tutor.ID,
		Similarity: sim,
		Features:   vec,
		RankScore:  score,
		Source:     source,
	}
}
