package feature

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// logFloor is the smallest mel energy fed into the log, guarding against
// log(0) on silent frames.
const logFloor = 1e-10

// extractor turns one window of raw samples into a log-mel feature vector.
// It owns the precomputed Hann window, mel filterbank, and FFT plan. An
// extractor is used by exactly one Pipeline and is not safe for concurrent
// use on its own.
type extractor struct {
	frameLen    int
	numBins     int
	preEmphasis float64

	window  []float64
	filters [][]float64
	fft     *fourier.FFT
	fftSize int

	// scratch buffers reused across frames
	buf   []float64
	power []float64
}

func newExtractor(cfg Config) *extractor {
	frameLen := cfg.SampleRate * cfg.FrameLengthMs / 1000

	fftSize := 1
	for fftSize < frameLen {
		fftSize <<= 1
	}

	return &extractor{
		frameLen:    frameLen,
		numBins:     cfg.NumMelBins,
		preEmphasis: cfg.PreEmphasis,
		window:      hannWindow(frameLen),
		filters:     melFilterbank(fftSize, cfg.NumMelBins, cfg.SampleRate),
		fft:         fourier.NewFFT(fftSize),
		fftSize:     fftSize,
		buf:         make([]float64, fftSize),
		power:       make([]float64, fftSize/2+1),
	}
}

// compute derives the log-mel vector for one frame. window holds up to
// frameLen samples; a short tail window is treated as zero-padded.
func (e *extractor) compute(window []float32) []float32 {
	buf := e.buf
	for i := range buf {
		buf[i] = 0
	}
	for i, s := range window {
		buf[i] = float64(s)
	}

	// Remove DC offset over the frame.
	mean := 0.0
	for _, v := range buf[:e.frameLen] {
		mean += v
	}
	mean /= float64(e.frameLen)
	for i := range buf[:e.frameLen] {
		buf[i] -= mean
	}

	// Pre-emphasis, computed within the frame so the result does not depend
	// on how samples were chunked on arrival.
	if e.preEmphasis > 0 {
		for i := e.frameLen - 1; i > 0; i-- {
			buf[i] -= e.preEmphasis * buf[i-1]
		}
		buf[0] -= e.preEmphasis * buf[0]
	}

	for i := 0; i < e.frameLen; i++ {
		buf[i] *= e.window[i]
	}

	coeffs := e.fft.Coefficients(nil, buf)
	for i := range e.power {
		re := real(coeffs[i])
		im := imag(coeffs[i])
		e.power[i] = re*re + im*im
	}

	out := make([]float32, e.numBins)
	for m := 0; m < e.numBins; m++ {
		sum := 0.0
		for k, f := range e.filters[m] {
			sum += e.power[k] * f
		}
		if sum < logFloor {
			sum = logFloor
		}
		out[m] = float32(math.Log(sum))
	}
	return out
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

// melFilterbank builds triangular mel filters using the HTK mel scale,
// working in Hz like torchaudio/librosa rather than in bin indices.
func melFilterbank(fftSize, numBins, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}
	melToHz := func(mel float64) float64 {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}

	numFFTBins := fftSize/2 + 1
	fMax := float64(sampleRate) / 2.0

	binFreqs := make([]float64, numFFTBins)
	for i := range binFreqs {
		binFreqs[i] = float64(i) * fMax / float64(numFFTBins-1)
	}

	// numBins+2 points on the mel scale: left edge, centers, right edge.
	mMax := hzToMel(fMax)
	edges := make([]float64, numBins+2)
	for i := range edges {
		edges[i] = melToHz(float64(i) * mMax / float64(numBins+1))
	}

	filters := make([][]float64, numBins)
	for m := 0; m < numBins; m++ {
		filters[m] = make([]float64, numFFTBins)
		for k, freq := range binFreqs {
			lower := (freq - edges[m]) / (edges[m+1] - edges[m])
			upper := (edges[m+2] - freq) / (edges[m+2] - edges[m+1])
			v := math.Min(lower, upper)
			if v > 0 {
				filters[m][k] = v
			}
		}
	}
	return filters
}
