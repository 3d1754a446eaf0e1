package mlp

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestModel builds a 2-in → 3-hidden → 4-out model file and returns its path.
func writeTestModel(t *testing.T) string {
	t.Helper()

	layers := []Layer{
		{
			W:   []float64{1, 0, 0, 1, 1, 1}, // 3×2
			B:   []float64{0, 0.5, -0.5},
			In:  2,
			Out: 3,
		},
		{
			W:   []float64{1, 0, 0, 0, 1, 0, 0, 0, 1, 0.5, 0.5, 0.5}, // 4×3
			B:   []float64{0, 0, 0, 0},
			In:  3,
			Out: 4,
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, 2, 4, layers); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.gob")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndScore(t *testing.T) {
	t.Parallel()

	s, err := Load(writeTestModel(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.VocabSize() != 4 {
		t.Errorf("VocabSize() = %d, want 4", s.VocabSize())
	}
	if s.InputDim() != 2 {
		t.Errorf("InputDim() = %d, want 2", s.InputDim())
	}

	frames := [][]float32{{1, 2}, {0, 0}, {-1, 1}}
	grid, err := s.Score(context.Background(), frames)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if grid.NumFrames() != len(frames) {
		t.Fatalf("grid has %d rows, want %d", grid.NumFrames(), len(frames))
	}

	// Each row must be a normalized log-probability distribution.
	for tIdx, row := range grid {
		if len(row) != 4 {
			t.Fatalf("row %d has %d entries, want 4", tIdx, len(row))
		}
		sum := 0.0
		for _, lp := range row {
			if lp > 0 {
				t.Errorf("row %d: positive log-prob %v", tIdx, lp)
			}
			sum += math.Exp(lp)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v in probability space, want 1", tIdx, sum)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	s, err := Load(writeTestModel(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	frames := [][]float32{{0.3, -0.7}, {1.1, 0.2}}
	a, err := s.Score(context.Background(), frames)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	b, err := s.Score(context.Background(), frames)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for tIdx := range a {
		for v := range a[tIdx] {
			if a[tIdx][v] != b[tIdx][v] {
				t.Fatalf("score differs between identical calls at [%d][%d]", tIdx, v)
			}
		}
	}
}

func TestScoreDimMismatch(t *testing.T) {
	t.Parallel()

	s, err := Load(writeTestModel(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Score(context.Background(), [][]float32{{1, 2, 3}}); err == nil {
		t.Error("expected error for wrong frame dimensionality")
	}
}

func TestScoreEmptyWindow(t *testing.T) {
	t.Parallel()

	s, err := Load(writeTestModel(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	grid, err := s.Score(context.Background(), nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if grid.NumFrames() != 0 {
		t.Errorf("empty window produced %d rows", grid.NumFrames())
	}
}

func TestLoadRejectsBadShapes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	// Layer output (3) does not match declared vocab (5).
	err := Write(&buf, 2, 5, []Layer{{W: make([]float64, 6), B: make([]float64, 3), In: 2, Out: 3}})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.gob")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for vocab/output mismatch")
	}
}
