package audio

// Resample converts mono samples from srcRate to dstRate using linear
// interpolation. If the rates match (or either is non-positive) the input is
// returned unchanged. Linear interpolation is adequate for speech features;
// the decoder does not depend on content above a few kHz.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if n == 0 {
		return nil
	}

	out := make([]float32, n)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// StereoToMono averages interleaved L/R sample pairs into a mono signal. A
// trailing unpaired sample is dropped.
func StereoToMono(samples []float32) []float32 {
	out := make([]float32, len(samples)/2)
	for i := range out {
		out[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return out
}
