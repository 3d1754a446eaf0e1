// Package feature implements the streaming feature pipeline: it buffers raw
// audio samples as they arrive from the network and serves fixed-format
// log-mel feature frames to the decode loop on demand.
//
// A Pipeline is the single synchronization point between a session's I/O
// goroutine (calling Accept and SetInputFinished) and its decode goroutine
// (calling Frames). Frame extraction is deterministic under chunking: frame i
// always derives from the same sample range no matter how the audio was split
// across Accept calls.
package feature

import (
	"fmt"
	"sync"
)

// TailPolicy selects what happens to trailing samples that do not fill a
// whole frame window when input finishes.
type TailPolicy string

const (
	// TailPad zero-pads every remaining window start into a final frame, so
	// short utterances still produce output.
	TailPad TailPolicy = "pad"

	// TailDrop discards the partial window.
	TailDrop TailPolicy = "drop"
)

// IsValid reports whether p is a recognised tail policy.
func (p TailPolicy) IsValid() bool {
	return p == TailPad || p == TailDrop
}

// Config describes the feature extraction parameters. All sessions of a
// server share one Config value; each session gets its own Pipeline.
type Config struct {
	// SampleRate is the input audio sample rate in Hz (e.g. 16000).
	SampleRate int

	// FrameLengthMs is the analysis window length in milliseconds (e.g. 25).
	FrameLengthMs int

	// FrameShiftMs is the hop between consecutive windows in milliseconds
	// (e.g. 10). Must not exceed FrameLengthMs.
	FrameShiftMs int

	// NumMelBins is the dimensionality of each feature frame (e.g. 80).
	NumMelBins int

	// PreEmphasis is the first-order high-pass coefficient applied per
	// frame. 0 disables pre-emphasis; 0.97 is the conventional value.
	PreEmphasis float64

	// Tail selects the end-of-input policy for the final partial window.
	Tail TailPolicy
}

// Validate checks cfg for coherent values.
func (cfg Config) Validate() error {
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("feature: sample_rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameLengthMs <= 0 || cfg.FrameShiftMs <= 0 {
		return fmt.Errorf("feature: frame_length_ms and frame_shift_ms must be positive, got %d/%d",
			cfg.FrameLengthMs, cfg.FrameShiftMs)
	}
	if cfg.FrameShiftMs > cfg.FrameLengthMs {
		return fmt.Errorf("feature: frame_shift_ms %d exceeds frame_length_ms %d",
			cfg.FrameShiftMs, cfg.FrameLengthMs)
	}
	if cfg.NumMelBins <= 0 {
		return fmt.Errorf("feature: num_mel_bins must be positive, got %d", cfg.NumMelBins)
	}
	if cfg.PreEmphasis < 0 || cfg.PreEmphasis >= 1 {
		return fmt.Errorf("feature: pre_emphasis must be in [0, 1), got %g", cfg.PreEmphasis)
	}
	if !cfg.Tail.IsValid() {
		return fmt.Errorf("feature: tail policy %q is invalid; valid values: pad, drop", cfg.Tail)
	}
	return nil
}

// Pipeline buffers samples and lazily computes feature frames. All exported
// methods are safe for concurrent use.
type Pipeline struct {
	frameLen   int // window length in samples
	frameShift int // hop in samples
	tail       TailPolicy

	mu       sync.Mutex
	cond     *sync.Cond
	samples  []float32
	frames   [][]float32 // cache of computed frames, dense from index 0
	finished bool

	ext *extractor
}

// New creates a Pipeline for cfg.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		frameLen:   cfg.SampleRate * cfg.FrameLengthMs / 1000,
		frameShift: cfg.SampleRate * cfg.FrameShiftMs / 1000,
		tail:       cfg.Tail,
		ext:        newExtractor(cfg),
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

// FrameDim returns the length of each feature vector.
func (p *Pipeline) FrameDim() int { return p.ext.numBins }

// Accept appends samples to the buffer and wakes any blocked reader.
// Calling Accept after SetInputFinished is a programming error and panics.
func (p *Pipeline) Accept(samples []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		panic("feature: Accept called after SetInputFinished")
	}
	p.samples = append(p.samples, samples...)
	p.cond.Broadcast()
}

// SetInputFinished marks the sample sequence as complete. The frame sequence
// becomes finite and blocked readers observe its end. Calling it more than
// once has no additional effect.
func (p *Pipeline) SetInputFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.cond.Broadcast()
}

// InputFinished reports whether SetInputFinished has been called.
func (p *Pipeline) InputFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// NumFramesReady returns the number of frames currently computable without
// blocking. A non-blocking peek for callers that poll.
func (p *Pipeline) NumFramesReady() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, _ := p.availableLocked()
	return n
}

// Frames returns up to max consecutive frames starting at index start. It
// blocks the calling goroutine until at least the frame at start is
// computable, or returns (nil, false) once input is finished and no frame at
// start can ever exist. Frames already computed may be re-read; callers must
// not modify the returned slices.
func (p *Pipeline) Frames(start, max int) ([][]float32, bool) {
	if start < 0 || max <= 0 {
		panic(fmt.Sprintf("feature: invalid frame request start=%d max=%d", start, max))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var avail int
	for {
		var final bool
		avail, final = p.availableLocked()
		if start < avail {
			break
		}
		if final {
			return nil, false
		}
		p.cond.Wait()
	}

	end := min(start+max, avail)
	p.computeUpToLocked(end)

	out := make([][]float32, end-start)
	copy(out, p.frames[start:end])
	return out, true
}

// availableLocked returns the number of computable frames and whether that
// count is final (no more input will arrive).
func (p *Pipeline) availableLocked() (int, bool) {
	n := len(p.samples)

	full := 0
	if n >= p.frameLen {
		full = (n-p.frameLen)/p.frameShift + 1
	}
	if !p.finished {
		return full, false
	}
	if p.tail == TailPad {
		// Every window start inside the signal yields a (zero-padded) frame.
		return (n + p.frameShift - 1) / p.frameShift, true
	}
	return full, true
}

// computeUpToLocked extends the frame cache so frames [0, end) exist.
func (p *Pipeline) computeUpToLocked(end int) {
	for i := len(p.frames); i < end; i++ {
		lo := i * p.frameShift
		hi := min(lo+p.frameLen, len(p.samples))
		p.frames = append(p.frames, p.ext.compute(p.samples[lo:hi]))
	}
}
