package ranking

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/metrics"
)

// Loader publishes the current model through an atomic pointer. A reload
// parses the artifact fully before swapping, so in-flight requests either see
// the old version or the new one, never a mix.
type Loader struct {
	path    string
	current atomic.Pointer[Model]
	logger  *zap.Logger
}

// NewLoader creates a model loader for the given artifact path. An empty path
// means the service runs on the heuristic scorer permanently.
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Load reads, parses, and atomically publishes the artifact. On failure the
// previously published model (if any) stays in place.
func (l *Loader) Load() error {
	if l.path == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Clean(l.path))
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("read model artifact %s: %w", l.path, err)
	}

	model, err := ParseModel(data)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("parse model artifact %s: %w", l.path, err)
	}

	l.current.Store(model)
	metrics.ModelReloadsTotal.WithLabelValues("success").Inc()
	l.logger.Info("Ranking model loaded", zap.String("version", model.Version()))
	return nil
}

// Current returns the published model, or nil when none is loaded.
func (l *Loader) Current() *Model {
	return l.current.Load()
}

// Version returns the published model version, or "heuristic" when no
// artifact is loaded. Feeds the request fingerprint, so cached results are
// keyed by the scorer that produced them.
func (l *Loader) Version() string {
	if m := l.current.Load(); m != nil {
		return m.version
	}
	return "heuristic"
}
