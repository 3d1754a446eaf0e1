// Package decode implements the incremental CTC decode engine: a prefix
// beam search over per-frame symbol log-probabilities, and the orchestrator
// that drives feature extraction, acoustic scoring, and search in lock-step
// chunks.
package decode

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Hypothesis is one ranked transcript candidate exposed by the beam.
type Hypothesis struct {
	// Prefix is the sequence of emitted (non-blank) symbol IDs.
	Prefix []int

	// Score is the total log-probability mass of the prefix.
	Score float64
}

// hypothesis tracks a prefix with its probability mass split by whether the
// underlying CTC paths currently end on a blank. The split is what makes
// repeat collapsing correct: a repeated symbol may only extend the prefix
// when a blank separated it from the previous emission.
type hypothesis struct {
	prefix []int
	pb     float64 // log-mass of paths ending on blank
	pnb    float64 // log-mass of paths ending on a non-blank
}

func (h *hypothesis) total() float64 { return logAdd(h.pb, h.pnb) }

// Beam maintains the top-K prefix hypotheses of a CTC prefix beam search.
// A Beam is single-threaded: Advance must be called once per frame, in frame
// order, from one goroutine.
type Beam struct {
	width   int
	blankID int
	hyps    []*hypothesis
}

// NewBeam creates a beam of the given width. The beam starts with the single
// empty prefix at probability 1.
func NewBeam(width, blankID int) *Beam {
	if width < 1 {
		panic(fmt.Sprintf("decode: beam width must be >= 1, got %d", width))
	}
	if blankID < 0 {
		panic(fmt.Sprintf("decode: blank ID must be >= 0, got %d", blankID))
	}
	return &Beam{
		width:   width,
		blankID: blankID,
		hyps:    []*hypothesis{{pb: 0, pnb: logZero}}, // log(1), log(0)
	}
}

// prefixKey encodes a symbol sequence for candidate merging.
func prefixKey(prefix []int) string {
	buf := make([]byte, 0, len(prefix)*binary.MaxVarintLen64)
	for _, s := range prefix {
		buf = binary.AppendUvarint(buf, uint64(s))
	}
	return string(buf)
}

// Advance consumes the log-probability distribution of one frame and
// replaces the beam with the top-K merged extensions.
func (b *Beam) Advance(logProbs []float64) {
	if b.blankID >= len(logProbs) {
		panic(fmt.Sprintf("decode: blank ID %d outside vocabulary of size %d", b.blankID, len(logProbs)))
	}

	next := make(map[string]*hypothesis, len(b.hyps)*4)
	get := func(prefix []int) *hypothesis {
		k := prefixKey(prefix)
		h, ok := next[k]
		if !ok {
			h = &hypothesis{prefix: prefix, pb: logZero, pnb: logZero}
			next[k] = h
		}
		return h
	}

	for _, h := range b.hyps {
		last := -1
		if len(h.prefix) > 0 {
			last = h.prefix[len(h.prefix)-1]
		}

		for s, lp := range logProbs {
			if lp == logZero {
				continue
			}
			switch {
			case s == b.blankID:
				// Blank keeps the prefix; all mass flips to ends-on-blank.
				n := get(h.prefix)
				n.pb = logAdd(n.pb, h.total()+lp)

			case s == last:
				// Repeat without an intervening blank collapses into the
				// same prefix.
				n := get(h.prefix)
				n.pnb = logAdd(n.pnb, h.pnb+lp)

				// Repeat after a blank starts a new emission.
				ext := get(extend(h.prefix, s))
				ext.pnb = logAdd(ext.pnb, h.pb+lp)

			default:
				ext := get(extend(h.prefix, s))
				ext.pnb = logAdd(ext.pnb, h.total()+lp)
			}
		}
	}

	merged := make([]*hypothesis, 0, len(next))
	for _, h := range next {
		merged = append(merged, h)
	}
	sort.Slice(merged, func(i, j int) bool {
		return lessHypothesis(merged[i], merged[j])
	})

	if len(merged) > b.width {
		merged = merged[:b.width]
	}
	b.hyps = merged
}

// lessHypothesis orders hypotheses for pruning: higher total probability
// first, ties broken by shorter prefix, then lexicographic symbol IDs, so
// identical inputs always produce identical beams.
func lessHypothesis(a, b *hypothesis) bool {
	at, bt := a.total(), b.total()
	if at != bt {
		return at > bt
	}
	if len(a.prefix) != len(b.prefix) {
		return len(a.prefix) < len(b.prefix)
	}
	for i := range a.prefix {
		if a.prefix[i] != b.prefix[i] {
			return a.prefix[i] < b.prefix[i]
		}
	}
	return false
}

func extend(prefix []int, s int) []int {
	out := make([]int, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = s
	return out
}

// Best returns the symbol sequence of the top-ranked hypothesis. The beam is
// always queryable; on a fresh beam Best returns an empty sequence.
func (b *Beam) Best() []int {
	return append([]int(nil), b.hyps[0].prefix...)
}

// Hypotheses returns the current beam contents in rank order.
func (b *Beam) Hypotheses() []Hypothesis {
	out := make([]Hypothesis, len(b.hyps))
	for i, h := range b.hyps {
		out[i] = Hypothesis{
			Prefix: append([]int(nil), h.prefix...),
			Score:  h.total(),
		}
	}
	return out
}

// Width returns the configured beam width.
func (b *Beam) Width() int { return b.width }
