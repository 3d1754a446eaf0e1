package decode

import (
	"math"
	"testing"
)

func TestLogAdd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"both finite", math.Log(0.25), math.Log(0.5), math.Log(0.75)},
		{"a zero", logZero, math.Log(0.5), math.Log(0.5)},
		{"b zero", math.Log(0.5), logZero, math.Log(0.5)},
		{"both zero", logZero, logZero, logZero},
		{"symmetric", math.Log(0.7), math.Log(0.1), math.Log(0.8)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := logAdd(tt.a, tt.b)
			if tt.want == logZero {
				if got != logZero {
					t.Errorf("logAdd(%v, %v) = %v, want -Inf", tt.a, tt.b, got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("logAdd(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLogAddNoUnderflow(t *testing.T) {
	t.Parallel()

	// Summing many tiny masses in log space must not collapse to zero.
	acc := logZero
	for i := 0; i < 10000; i++ {
		acc = logAdd(acc, -700.0)
	}
	if acc == logZero || math.IsNaN(acc) {
		t.Fatalf("accumulated mass degenerate: %v", acc)
	}
	want := -700.0 + math.Log(10000)
	if math.Abs(acc-want) > 1e-6 {
		t.Errorf("accumulated mass = %v, want %v", acc, want)
	}
}
