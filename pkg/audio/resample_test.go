package audio

import (
	"math"
	"testing"
)

func TestResample_Identity(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: %v -> %v", i, in[i], out[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	t.Parallel()

	// A constant signal stays constant through interpolation.
	in := make([]float32, 480)
	for i := range in {
		in[i] = 0.5
	}
	out := Resample(in, 48000, 16000)
	if len(out) != 160 {
		t.Fatalf("len = %d, want 160", len(out))
	}
	for i, s := range out {
		if math.Abs(float64(s)-0.5) > 1e-6 {
			t.Fatalf("sample %d = %v, want 0.5", i, s)
		}
	}
}

func TestResample_Upsample(t *testing.T) {
	t.Parallel()

	in := []float32{0, 1}
	out := Resample(in, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	// Interpolated values must be monotonically non-decreasing on a ramp.
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("output not monotone at %d: %v", i, out)
		}
	}
}

func TestResample_Empty(t *testing.T) {
	t.Parallel()

	if out := Resample(nil, 8000, 16000); len(out) != 0 {
		t.Fatalf("got %d samples from empty input", len(out))
	}
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	out := StereoToMono([]float32{1, 0, 0.5, 0.5, -1, 1})
	want := []float32{0.5, 0.5, 0}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestStereoToMono_OddTail(t *testing.T) {
	t.Parallel()

	out := StereoToMono([]float32{1, 1, 0.25})
	if len(out) != 1 || out[0] != 1 {
		t.Fatalf("got %v, want [1]", out)
	}
}
