package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// FIRFilter is a direct-form FIR filter driven one sample at a time,
// matching the teacher's "process_sample" style rather than a block
// convolution — the decoder never has more than one sample available at
// a time once it leaves the resampler.
type FIRFilter struct {
	coeffs []float64
	delay  *DelayLine
}

// NewFIRFilter builds a filter around a fixed coefficient set. The
// coefficient slice is not copied defensively; callers must treat it as
// immutable once handed to NewFIRFilter, matching original_source's
// FIRFilter which takes ownership of its coefficient vector.
func NewFIRFilter(coeffs []float64) *FIRFilter {
	return &FIRFilter{
		coeffs: coeffs,
		delay:  NewDelayLine(len(coeffs)),
	}
}

// ProcessSample pushes one input sample through the filter and returns
// the convolution output for that instant.
func (f *FIRFilter) ProcessSample(x float64) float64 {
	f.delay.Push(x)
	var acc float64
	for i, c := range f.coeffs {
		acc += c * f.delay.At(i)
	}
	return acc
}

// GroupDelay returns the filter's group delay in samples, valid for the
// symmetric/antisymmetric linear-phase designs this package builds
// (bandpass, Hilbert): (taps-1)/2.
func (f *FIRFilter) GroupDelay() int {
	return (len(f.coeffs) - 1) / 2
}

// Clear resets the filter's internal history without touching its
// coefficients; Decoder.Reset uses it to return the bandpass stage to
// its initial state.
func (f *FIRFilter) Clear() {
	f.delay.Reset()
}

// MakeBandpassCoeffs builds a Hamming-windowed FIR bandpass filter by
// subtracting two windowed-sinc lowpass responses, per spec §4.2 and
// grounded on original_source/src/dsp_filters.cpp's make_fir_coeffs.
// Unlike the original, this does NOT sum-normalise the result — spec.md
// is explicit that no post-normalisation beyond window application is
// applied.
func MakeBandpassCoeffs(tapCount int, sampleRate, lowHz, highHz float64) []float64 {
	fLow := lowHz / sampleRate
	fHigh := highHz / sampleRate
	mid := float64(tapCount-1) / 2

	coeffs := make([]float64, tapCount)
	for i := 0; i < tapCount; i++ {
		n := float64(i) - mid
		coeffs[i] = 2*fHigh*sincNorm(2*fHigh*n) - 2*fLow*sincNorm(2*fLow*n)
	}
	applyWindow(coeffs, window.Hamming)
	return coeffs
}

// MakeHilbertCoeffs builds a Blackman-windowed FIR approximation of the
// ideal Hilbert transformer, per spec §4.3: h[n] = 2/(pi*n) for odd n
// (n measured from the filter's centre tap), 0 otherwise. An even
// tapCount is rounded up to the next odd count so the filter has a
// well-defined integer group delay.
func MakeHilbertCoeffs(tapCount int) []float64 {
	if tapCount%2 == 0 {
		tapCount++
	}
	mid := (tapCount - 1) / 2

	coeffs := make([]float64, tapCount)
	for i := 0; i < tapCount; i++ {
		n := i - mid
		if n == 0 || n%2 == 0 {
			coeffs[i] = 0
			continue
		}
		coeffs[i] = 2 / (math.Pi * float64(n))
	}
	applyWindow(coeffs, window.Blackman)
	return coeffs
}

// sincNorm is the normalised sinc, sin(pi*x)/(pi*x), with sinc(0) = 1.
func sincNorm(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// applyWindow multiplies coeffs in place by the window function's
// coefficients for a sequence of the same length.
func applyWindow(coeffs []float64, w func([]float64) []float64) {
	ones := make([]float64, len(coeffs))
	for i := range ones {
		ones[i] = 1
	}
	w(ones)
	for i := range coeffs {
		coeffs[i] *= ones[i]
	}
}
