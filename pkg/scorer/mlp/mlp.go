// Package mlp provides a feed-forward acoustic scorer. It implements the
// scorer.Scorer interface with a fully-connected network (hidden ReLU layers,
// log-softmax output over the vocabulary) whose weights are loaded from a
// gob-encoded model file.
//
// The scorer ships as the reference backend so the server runs end to end
// without an external inference runtime. Weights are read-only after Load,
// so one Scorer may serve any number of concurrent sessions.
package mlp

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/sonaq/sonaq/pkg/scorer"
)

// layerData is the on-disk form of one fully-connected layer.
// W is [Out × In] row-major, B is [Out].
type layerData struct {
	W   []float64
	B   []float64
	In  int
	Out int
}

// modelData is the gob-encoded model file layout.
type modelData struct {
	InputDim int
	Vocab    int
	Layers   []layerData
}

type layer struct {
	w *mat.Dense // Out × In
	b []float64
}

// Scorer evaluates a feed-forward network over windows of feature frames.
type Scorer struct {
	inputDim int
	vocab    int
	layers   []layer
}

// Load reads a gob model file from path.
func Load(path string) (*Scorer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mlp: open %q: %w", path, err)
	}
	defer f.Close()

	var data modelData
	if err := decodeModel(f, &data); err != nil {
		return nil, fmt.Errorf("mlp: decode %q: %w", path, err)
	}
	return fromData(data)
}

func decodeModel(r io.Reader, data *modelData) error {
	return gob.NewDecoder(r).Decode(data)
}

// Write gob-encodes a model to w. Exposed for model-conversion tooling and
// test fixtures.
func Write(w io.Writer, inputDim, vocab int, layers []Layer) error {
	data := modelData{InputDim: inputDim, Vocab: vocab}
	for _, l := range layers {
		data.Layers = append(data.Layers, layerData(l))
	}
	if err := gob.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("mlp: encode model: %w", err)
	}
	return nil
}

// Layer is the exported form of one fully-connected layer, accepted by
// Write. W is [Out × In] row-major, B is [Out].
type Layer struct {
	W   []float64
	B   []float64
	In  int
	Out int
}

func fromData(data modelData) (*Scorer, error) {
	if len(data.Layers) == 0 {
		return nil, errors.New("mlp: model has no layers")
	}
	if data.InputDim <= 0 || data.Vocab <= 0 {
		return nil, fmt.Errorf("mlp: invalid dims input=%d vocab=%d", data.InputDim, data.Vocab)
	}

	prev := data.InputDim
	layers := make([]layer, len(data.Layers))
	for i, ld := range data.Layers {
		if ld.In != prev {
			return nil, fmt.Errorf("mlp: layer %d input dim %d does not match previous output %d", i, ld.In, prev)
		}
		if len(ld.W) != ld.In*ld.Out || len(ld.B) != ld.Out {
			return nil, fmt.Errorf("mlp: layer %d has inconsistent weight shapes", i)
		}
		layers[i] = layer{
			w: mat.NewDense(ld.Out, ld.In, ld.W),
			b: ld.B,
		}
		prev = ld.Out
	}
	if prev != data.Vocab {
		return nil, fmt.Errorf("mlp: output dim %d does not match vocab %d", prev, data.Vocab)
	}

	return &Scorer{inputDim: data.InputDim, vocab: data.Vocab, layers: layers}, nil
}

// VocabSize returns the output vocabulary size, blank included.
func (s *Scorer) VocabSize() int { return s.vocab }

// InputDim returns the expected feature frame dimensionality.
func (s *Scorer) InputDim() int { return s.inputDim }

// Score evaluates the network on a window of frames and returns per-frame
// log-probabilities over the vocabulary.
func (s *Scorer) Score(_ context.Context, frames [][]float32) (scorer.Grid, error) {
	if len(frames) == 0 {
		return scorer.Grid{}, nil
	}
	for t, fr := range frames {
		if len(fr) != s.inputDim {
			return nil, fmt.Errorf("mlp: frame %d has dim %d, model expects %d", t, len(fr), s.inputDim)
		}
	}

	// Batch all frames into one T × InputDim matrix.
	raw := make([]float64, len(frames)*s.inputDim)
	for t, fr := range frames {
		for j, v := range fr {
			raw[t*s.inputDim+j] = float64(v)
		}
	}
	x := mat.NewDense(len(frames), s.inputDim, raw)

	for i, l := range s.layers {
		var y mat.Dense
		y.Mul(x, l.w.T())

		rows, cols := y.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				v := y.At(r, c) + l.b[c]
				// ReLU on hidden layers only.
				if i < len(s.layers)-1 && v < 0 {
					v = 0
				}
				y.Set(r, c, v)
			}
		}
		x = &y
	}

	grid := make(scorer.Grid, len(frames))
	for t := range grid {
		grid[t] = logSoftmax(x.RawRowView(t))
	}
	return grid, nil
}

// logSoftmax converts one row of activations into log-probabilities using
// the max-subtraction form for numerical stability.
func logSoftmax(row []float64) []float64 {
	maxV := row[0]
	for _, v := range row[1:] {
		if v > maxV {
			maxV = v
		}
	}
	sum := 0.0
	for _, v := range row {
		sum += math.Exp(v - maxV)
	}
	logZ := maxV + math.Log(sum)

	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v - logZ
	}
	return out
}

// Ensure Scorer implements scorer.Scorer at compile time.
var _ scorer.Scorer = (*Scorer)(nil)
