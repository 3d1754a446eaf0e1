// Package mock provides a test double for the scorer.Scorer interface.
//
// Use Scorer to feed controlled log-probability grids to the decode engine
// and inspect the frame windows it was asked to score.
//
// Example:
//
//	s := &mock.Scorer{
//	    Vocab: 3,
//	    ScoreFunc: func(frames [][]float32) (scorer.Grid, error) {
//	        return mock.UniformGrid(len(frames), 3), nil
//	    },
//	}
package mock

import (
	"context"
	"math"
	"sync"

	"github.com/sonaq/sonaq/pkg/scorer"
)

// ScoreCall records a single invocation of Scorer.Score.
type ScoreCall struct {
	// NumFrames is the number of frames in the scored window.
	NumFrames int
}

// Scorer is a mock implementation of scorer.Scorer.
type Scorer struct {
	mu sync.Mutex

	// Vocab is the value returned by VocabSize.
	Vocab int

	// ScoreFunc computes the grid for a window. If nil, Score returns a
	// uniform grid over Vocab symbols.
	ScoreFunc func(frames [][]float32) (scorer.Grid, error)

	// ScoreErr, if non-nil, is returned as the error from Score.
	ScoreErr error

	// ScoreCalls records every call to Score.
	ScoreCalls []ScoreCall
}

// Score records the call and delegates to ScoreFunc.
func (s *Scorer) Score(_ context.Context, frames [][]float32) (scorer.Grid, error) {
	s.mu.Lock()
	s.ScoreCalls = append(s.ScoreCalls, ScoreCall{NumFrames: len(frames)})
	s.mu.Unlock()

	if s.ScoreErr != nil {
		return nil, s.ScoreErr
	}
	if s.ScoreFunc != nil {
		return s.ScoreFunc(frames)
	}
	return UniformGrid(len(frames), s.Vocab), nil
}

// VocabSize returns Vocab.
func (s *Scorer) VocabSize() int { return s.Vocab }

// Calls returns a snapshot of recorded Score calls. Thread-safe.
func (s *Scorer) Calls() []ScoreCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScoreCall(nil), s.ScoreCalls...)
}

// Ensure Scorer implements scorer.Scorer at compile time.
var _ scorer.Scorer = (*Scorer)(nil)

// UniformGrid builds a grid where every symbol has probability 1/vocab at
// every frame.
func UniformGrid(numFrames, vocab int) scorer.Grid {
	lp := -math.Log(float64(vocab))
	g := make(scorer.Grid, numFrames)
	for t := range g {
		row := make([]float64, vocab)
		for v := range row {
			row[v] = lp
		}
		g[t] = row
	}
	return g
}

// GridFromProbs converts plain per-frame probability rows into a log-space
// grid. Handy for writing tests against literal probabilities.
func GridFromProbs(rows [][]float64) scorer.Grid {
	g := make(scorer.Grid, len(rows))
	for t, row := range rows {
		g[t] = make([]float64, len(row))
		for v, p := range row {
			g[t][v] = math.Log(p)
		}
	}
	return g
}
