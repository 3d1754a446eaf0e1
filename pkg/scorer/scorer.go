// Package scorer defines the Scorer interface for acoustic model backends.
//
// A Scorer maps a window of feature frames to a frame-aligned grid of
// per-symbol log-probabilities, including a distinguished blank symbol. The
// decode engine treats scorers as stateless: any internal recurrent state is
// the implementation's concern.
//
// Implementations must be safe to call concurrently from independent
// sessions and must be deterministic given identical input frames.
package scorer

import "context"

// Grid is the result of one scoring call: Grid[t][v] is the log-probability
// of vocabulary symbol v at frame t. Each row sums (in probability space)
// to 1 over the vocabulary.
type Grid [][]float64

// NumFrames returns the number of frame rows in the grid.
func (g Grid) NumFrames() int { return len(g) }

// Scorer is the abstraction over any acoustic scoring backend.
type Scorer interface {
	// Score computes the symbol log-probability grid for a contiguous window
	// of feature frames. The returned grid has exactly one row per input
	// frame. An error is fatal to the calling session; scoring is never
	// retried.
	Score(ctx context.Context, frames [][]float32) (Grid, error)

	// VocabSize returns the number of vocabulary entries per grid row,
	// blank included.
	VocabSize() int
}
