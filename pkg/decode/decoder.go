package decode

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonaq/sonaq/pkg/feature"
	"github.com/sonaq/sonaq/pkg/scorer"
	"github.com/sonaq/sonaq/pkg/symbol"
)

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateDecoding
	StateFinished
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a Decoder. All sessions of a server share one Options
// value.
type Options struct {
	// BeamWidth is the number of hypotheses kept after each frame.
	BeamWidth int

	// ChunkSize bounds how many frames are scored per decode step, capping
	// scorer latency and setting the partial-result emission interval.
	ChunkSize int

	// BlankID is the vocabulary index of the CTC blank symbol.
	BlankID int

	// ExcludeIDs lists symbol IDs filtered from rendered text (e.g. an
	// end-of-utterance marker emitted by the model).
	ExcludeIDs []int
}

// Validate checks opts against the vocabulary size of the scorer in use.
func (o Options) Validate(vocabSize int) error {
	if o.BeamWidth < 1 {
		return fmt.Errorf("decode: beam_width must be >= 1, got %d", o.BeamWidth)
	}
	if o.ChunkSize < 1 {
		return fmt.Errorf("decode: chunk_size must be >= 1, got %d", o.ChunkSize)
	}
	if o.BlankID < 0 || o.BlankID >= vocabSize {
		return fmt.Errorf("decode: blank_id %d outside vocabulary of size %d", o.BlankID, vocabSize)
	}
	return nil
}

// Decoder drives the decode loop for one session: it pulls chunks of frames
// from the feature pipeline, scores them, advances the beam one frame at a
// time, and renders the current best hypothesis as text.
//
// A Decoder is owned by a single decode goroutine; only Result and State are
// safe to call from other goroutines after the owner has stopped.
type Decoder struct {
	pipe    *feature.Pipeline
	scorer  scorer.Scorer
	table   *symbol.Table
	opts    Options
	exclude map[int]struct{}

	beam      *Beam
	nextFrame int
	state     State
	result    string
}

// NewDecoder creates a Decoder over the given collaborators.
func NewDecoder(pipe *feature.Pipeline, sc scorer.Scorer, table *symbol.Table, opts Options) (*Decoder, error) {
	if err := opts.Validate(sc.VocabSize()); err != nil {
		return nil, err
	}
	exclude := make(map[int]struct{}, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		exclude[id] = struct{}{}
	}
	return &Decoder{
		pipe:    pipe,
		scorer:  sc,
		table:   table,
		opts:    opts,
		exclude: exclude,
		beam:    NewBeam(opts.BeamWidth, opts.BlankID),
		state:   StateIdle,
	}, nil
}

// Step performs one decode step: block for the next chunk of frames, score
// it, advance the beam through the chunk, and refresh the rendered result.
// It returns finished=true once the pipeline has reported end of sequence,
// at which point the result is final. A scorer error is fatal; the decoder
// must not be stepped again after an error.
func (d *Decoder) Step(ctx context.Context) (finished bool, err error) {
	if d.state == StateFinished {
		return true, nil
	}
	d.state = StateDecoding

	frames, ok := d.pipe.Frames(d.nextFrame, d.opts.ChunkSize)
	if !ok {
		d.state = StateFinished
		return true, nil
	}

	grid, err := d.scorer.Score(ctx, frames)
	if err != nil {
		return false, fmt.Errorf("decode: score frames [%d, %d): %w",
			d.nextFrame, d.nextFrame+len(frames), err)
	}
	if grid.NumFrames() != len(frames) {
		return false, fmt.Errorf("decode: scorer returned %d rows for %d frames",
			grid.NumFrames(), len(frames))
	}

	for _, row := range grid {
		d.beam.Advance(row)
	}
	d.nextFrame += len(frames)
	d.result = d.render()
	return false, nil
}

// Result returns the current best transcript.
func (d *Decoder) Result() string { return d.result }

// State returns the orchestrator state.
func (d *Decoder) State() State { return d.state }

// NumFramesDecoded returns how many frames the beam has consumed.
func (d *Decoder) NumFramesDecoded() int { return d.nextFrame }

// NBest renders up to n ranked hypotheses as text.
func (d *Decoder) NBest(n int) []string {
	hyps := d.beam.Hypotheses()
	if n < len(hyps) {
		hyps = hyps[:n]
	}
	out := make([]string, len(hyps))
	for i, h := range hyps {
		out[i] = d.renderIDs(h.Prefix)
	}
	return out
}

func (d *Decoder) render() string {
	return d.renderIDs(d.beam.Best())
}

// renderIDs maps symbol IDs to text, skipping excluded IDs and IDs absent
// from the symbol table.
func (d *Decoder) renderIDs(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		if _, skip := d.exclude[id]; skip {
			continue
		}
		if tok, ok := d.table.Resolve(id); ok {
			sb.WriteString(tok)
		}
	}
	return sb.String()
}
