package decode

import "math"

// logZero represents probability zero in log space.
var logZero = math.Inf(-1)

// logAdd returns log(exp(a) + exp(b)) without leaving log space, so long
// utterances cannot underflow the accumulated hypothesis mass.
func logAdd(a, b float64) float64 {
	if a == logZero {
		return b
	}
	if b == logZero {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}
