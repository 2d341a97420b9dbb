// Package metricswrap reports hotness tracker size and hot keys.
package metricswrap

import (
	"log/slog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/wherewolf/internal/core/observability"
	"github.com/mohammed-shakir/wherewolf/internal/hotness"
)

type Sizer interface{ Size() int }

// WithMetrics keeps the tracked-keys gauge current and logs a sample of keys
// whose score crosses threshold. The threshold is compared against the
// decayed float score, so with a real clock n hits in a row score just
// under n.
type WithMetrics struct {
	inner     hotness.Interface
	threshold float64
	sample    float64
	log       *slog.Logger
}

func New(inner hotness.Interface, threshold, sample float64, log *slog.Logger) *WithMetrics {
	if log == nil {
		log = slog.Default()
	}
	return &WithMetrics{inner: inner, threshold: threshold, sample: sample, log: log}
}

func (w *WithMetrics) Inc(key string) float64 {
	score := w.inner.Inc(key)
	if w.threshold > 0 && score >= w.threshold && shouldLog(w.sample, key) {
		w.log.Info("hot key above threshold",
			"event", "hotness_threshold", "key", key, "score", score)
	}
	w.report()
	return score
}

func (w *WithMetrics) Score(key string) float64 {
	return w.inner.Score(key)
}

func (w *WithMetrics) Reset(keys ...string) {
	w.inner.Reset(keys...)
	w.report()
}

func (w *WithMetrics) Top(n int) []hotness.Entry {
	return w.inner.Top(n)
}

func (w *WithMetrics) report() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotKeys(s.Size())
	}
}

// shouldLog samples deterministically by key hash, so a given key is either
// always or never logged.
func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	return xx.Sum64String(key)%denom < threshold
}
