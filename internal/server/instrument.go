package server

import (
	"context"
	"time"

	"github.com/sonaq/sonaq/internal/observe"
	"github.com/sonaq/sonaq/pkg/scorer"
)

// timedScorer wraps a scorer.Scorer and records per-call latency. Sessions
// share one underlying scorer but each wraps it independently, so the wrapper
// carries no state beyond the two handles.
type timedScorer struct {
	inner   scorer.Scorer
	metrics *observe.Metrics
}

var _ scorer.Scorer = (*timedScorer)(nil)

func (t *timedScorer) Score(ctx context.Context, frames [][]float32) (scorer.Grid, error) {
	start := time.Now()
	grid, err := t.inner.Score(ctx, frames)
	t.metrics.ScorerDuration.Record(ctx, time.Since(start).Seconds())
	return grid, err
}

func (t *timedScorer) VocabSize() int { return t.inner.VocabSize() }
