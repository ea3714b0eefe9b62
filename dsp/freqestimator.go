package dsp

import "math"

// FreqEstimatorConfig carries the tunable constants of the frequency
// estimator's pipeline, defaulting to the values spec §4.3 specifies.
type FreqEstimatorConfig struct {
	DCBlockAlpha float64
	AGCTarget    float64
	AGCAttack    float64
	AGCRelease   float64
	HilbertTaps  int
}

// DefaultFreqEstimatorConfig returns the spec-mandated defaults.
func DefaultFreqEstimatorConfig() FreqEstimatorConfig {
	return FreqEstimatorConfig{
		DCBlockAlpha: 0.995,
		AGCTarget:    0.5,
		AGCAttack:    0.01,
		AGCRelease:   0.001,
		HilbertTaps:  63,
	}
}

// FrequencyEstimator converts a bandpass-filtered real-valued FM signal
// into an instantaneous-frequency stream: DC block, AGC, Hilbert FIR to
// form a quadrature pair, then a complex differential discriminator
// between consecutive I/Q samples. Grounded on spec §4.3; the underlying
// discriminator math matches original_source's declared (but unused in
// its shipped prototype) Hilbert design in dsp_freq_estimator.h.
type FrequencyEstimator struct {
	sampleRate float64
	cfg        FreqEstimatorConfig

	dc      *DCBlocker
	agc     *AGC
	hilbert *FIRFilter
	align   *DelayLine

	groupDelay int
	samplesSeen int

	prevI, prevQ float64
	lastFreq     float64
}

// NewFrequencyEstimator builds an estimator for the given internal
// sample rate using the supplied configuration.
func NewFrequencyEstimator(sampleRate float64, cfg FreqEstimatorConfig) *FrequencyEstimator {
	hilbertCoeffs := MakeHilbertCoeffs(cfg.HilbertTaps)
	hilbert := NewFIRFilter(hilbertCoeffs)
	groupDelay := hilbert.GroupDelay()

	return &FrequencyEstimator{
		sampleRate: sampleRate,
		cfg:        cfg,
		dc:         NewDCBlocker(cfg.DCBlockAlpha),
		agc:        NewAGC(cfg.AGCTarget, cfg.AGCAttack, cfg.AGCRelease),
		hilbert:    hilbert,
		align:      NewDelayLine(groupDelay + 1),
		groupDelay: groupDelay,
	}
}

// ProcessSample feeds one bandpass-filtered sample through the pipeline
// and returns the estimated instantaneous frequency in Hz.
//
// Until the Hilbert FIR's delay line has filled at least once, the
// estimator reports 0 Hz (startup guard, per spec §4.3). During silence
// (I/Q magnitude-squared below 1e-7) the last valid frequency is held
// rather than updated, so a momentary dropout does not snap the
// estimate to a spurious value.
func (e *FrequencyEstimator) ProcessSample(x float64) float64 {
	dcOut := e.dc.Process(x)
	agcOut := e.agc.Process(dcOut)

	e.align.Push(agcOut)
	q := e.hilbert.ProcessSample(agcOut)

	e.samplesSeen++
	if e.samplesSeen <= len(e.hilbert.coeffs) {
		e.lastFreq = 0
		return 0
	}

	i := e.align.At(e.groupDelay)
	magSq := i*i + q*q
	if magSq < 1e-7 {
		return e.lastFreq
	}

	dot := i*e.prevI + q*e.prevQ
	cross := q*e.prevI - i*e.prevQ
	freq := math.Atan2(cross, dot) * e.sampleRate / (2 * math.Pi)

	e.prevI, e.prevQ = i, q
	e.lastFreq = freq
	return freq
}

// Clear resets the estimator's internal filters and discriminator state,
// used on a full decoder reset (spec §7).
func (e *FrequencyEstimator) Clear() {
	e.dc.Reset()
	e.agc.Reset()
	e.hilbert.Clear()
	e.align.Reset()
	e.samplesSeen = 0
	e.prevI, e.prevQ = 0, 0
	e.lastFreq = 0
}

// FreqToPixelValue maps an instantaneous frequency onto the PD family's
// luma/chroma range [1500Hz black, 2300Hz white], clamped, per spec
// §4.5 and original_source's freq_to_pixel_value.
func FreqToPixelValue(freq float64) uint8 {
	const (
		blackFreq = 1500.0
		whiteFreq = 2300.0
		freqRange = whiteFreq - blackFreq
	)
	if freq < blackFreq {
		return 0
	}
	if freq > whiteFreq {
		return 255
	}
	normalized := (freq - blackFreq) / freqRange
	v := normalized * 255
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(math.Round(v))
}
