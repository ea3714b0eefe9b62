package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultResamplerPhases is the number of polyphase branches the
	// prototype filter is decomposed into.
	DefaultResamplerPhases = 64
	// DefaultResamplerTapsPerPhase is the number of taps each branch
	// convolves per output sample.
	DefaultResamplerTapsPerPhase = 16
)

// Resampler is a streaming polyphase windowed-sinc rate converter.
// Grounded on original_source/src/dsp_resampler.cpp: a Blackman-windowed
// sinc prototype is designed at a cutoff of 0.45*min(inputRate,
// targetRate), decomposed into `phases` branches each with
// `tapsPerPhase` taps, and each branch normalised to unit DC gain so a
// steady input tone passes through at unchanged amplitude regardless of
// which phase lands on it.
//
// Process is call-to-call streaming: a fractional output position and a
// tail of input history are retained across calls, so repeated calls
// with arbitrarily sized blocks reproduce what one large call would
// have produced.
type Resampler struct {
	inputRate  float64
	targetRate float64
	ratio      float64 // inputRate / targetRate: input samples consumed per output sample

	phases       int
	tapsPerPhase int
	phaseCoeffs  [][]float64 // [phase][tap]

	history []float64 // tail of the previous work buffer, length tapsPerPhase-1
	pos     float64   // fractional position of the next output sample within history++input
}

// NewResampler builds a resampler converting from inputRate to
// targetRate using the given polyphase decomposition.
func NewResampler(inputRate, targetRate float64, phases, tapsPerPhase int) *Resampler {
	r := &Resampler{
		inputRate:    inputRate,
		targetRate:   targetRate,
		ratio:        inputRate / targetRate,
		phases:       phases,
		tapsPerPhase: tapsPerPhase,
		history:      make([]float64, tapsPerPhase-1),
	}
	r.designFilter()
	return r
}

// designFilter builds the Blackman-windowed sinc prototype, evaluated at
// the phases-upsampled rate, and slices it into per-phase,
// unit-DC-gain-normalised branches.
func (r *Resampler) designFilter() {
	minRate := math.Min(r.inputRate, r.targetRate)
	cutoff := 0.45 * minRate
	upsampledRate := float64(r.phases) * r.inputRate
	fc := cutoff / upsampledRate

	totalTaps := r.phases * r.tapsPerPhase
	mid := float64(totalTaps-1) / 2

	prototype := make([]float64, totalTaps)
	for i := 0; i < totalTaps; i++ {
		n := float64(i) - mid
		prototype[i] = 2 * fc * sincNorm(2*fc*n)
	}
	applyWindow(prototype, window.Blackman)

	r.phaseCoeffs = make([][]float64, r.phases)
	for p := 0; p < r.phases; p++ {
		branch := make([]float64, r.tapsPerPhase)
		for t := 0; t < r.tapsPerPhase; t++ {
			idx := t*r.phases + p
			if idx < totalTaps {
				branch[t] = prototype[idx]
			}
		}
		sum := floats.Sum(branch)
		if sum != 0 {
			floats.Scale(1/sum, branch)
		}
		r.phaseCoeffs[p] = branch
	}
}

// Process resamples one block of input samples, returning the produced
// output block. History and fractional phase position carry across
// calls.
func (r *Resampler) Process(input []float32) []float32 {
	work := make([]float64, 0, len(r.history)+len(input))
	work = append(work, r.history...)
	for _, s := range input {
		work = append(work, float64(s))
	}

	var out []float32
	pos := r.pos

	for pos+float64(r.tapsPerPhase) <= float64(len(work)) {
		idx := int(math.Floor(pos))
		frac := pos - math.Floor(pos)
		phase := int(frac * float64(r.phases))
		if phase >= r.phases {
			phase = r.phases - 1
		}

		coeffs := r.phaseCoeffs[phase]
		var acc float64
		for t, c := range coeffs {
			acc += c * work[idx+t]
		}
		out = append(out, float32(acc))

		pos += r.ratio
	}

	tailLen := len(r.history)
	tailStart := len(work) - tailLen
	if tailStart < 0 {
		tailStart = 0
	}
	newHistory := make([]float64, tailLen)
	copy(newHistory, work[tailStart:])

	r.pos = pos - float64(tailStart)
	r.history = newHistory

	return out
}

// Reset clears the resampler's streaming state (history and fractional
// output position) without rebuilding its filter.
func (r *Resampler) Reset() {
	for i := range r.history {
		r.history[i] = 0
	}
	r.pos = 0
}
