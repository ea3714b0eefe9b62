package sstv

import (
	"fmt"
	"log"

	"github.com/zerosignal0101/sstv-pd-decoder/dsp"
)

// decoderState enumerates the top-level orchestrator's states, per spec
// §4.6 and original_source/src/sstv_decoder.cpp.
type decoderState int

const (
	stateSearchingVIS decoderState = iota
	stateDecodingImage
	stateImageComplete
)

// Decoder is the single-threaded, synchronous SSTV PD-family decoder:
// Resampler → Bandpass FIR → FrequencyEstimator → VISDetector →
// PDDemodulator, driven entirely by calls to Process. It never spawns
// a goroutine and is never re-entrant — per spec §5, callers own all
// concurrency and must not call Process concurrently with itself or
// with Reset.
type Decoder struct {
	cfg Config

	inputSampleRate float64
	resampler       *dsp.Resampler
	bandpass        *dsp.FIRFilter
	freqEstimator   *dsp.FrequencyEstimator

	visDetector *VISDetector
	pdDemod     *PDDemodulator

	state decoderState

	onModeDetected  func(SSTVMode)
	onLineDecoded   OnLineDecoded
	onImageComplete OnImageComplete

	Logger *log.Logger
	// Metrics is nil-safe; set it via SetMetrics rather than assigning
	// directly, so the VIS detector and the active PD demodulator (if
	// any) receive the same bundle.
	Metrics *Metrics
}

// SetMetrics installs a Prometheus metrics bundle and propagates it to
// every component that updates a counter or gauge from the hot path:
// the VIS detector (VISParityFailures) and, if an image is currently
// being decoded, the active PD demodulator (AFCFrequencyOffset,
// LinesDecoded, ImagesCompleted). Pass nil to disable metrics.
func (d *Decoder) SetMetrics(m *Metrics) {
	d.Metrics = m
	d.visDetector.Metrics = m
	if d.pdDemod != nil {
		d.pdDemod.Metrics = m
	}
}

// NewDecoder constructs a Decoder that accepts samples at inputRate. If
// inputRate differs from cfg.InternalSampleRate, every call to Process
// first resamples through a polyphase resampler (spec §4.1); if they
// match, that stage is skipped entirely.
func NewDecoder(inputRate float64, cfg Config) (*Decoder, error) {
	if inputRate <= 0 {
		return nil, fmt.Errorf("sstv: invalid input sample rate %v", inputRate)
	}
	if cfg.InternalSampleRate <= 0 {
		return nil, fmt.Errorf("sstv: invalid internal sample rate %v", cfg.InternalSampleRate)
	}

	d := &Decoder{
		cfg:             cfg,
		inputSampleRate: inputRate,
		bandpass:        dsp.NewFIRFilter(dsp.MakeBandpassCoeffs(cfg.BandpassTaps, cfg.InternalSampleRate, cfg.BandpassLowHz, cfg.BandpassHighHz)),
		freqEstimator:   dsp.NewFrequencyEstimator(cfg.InternalSampleRate, cfg.freqEstimatorConfig()),
		visDetector:     NewVISDetector(cfg.InternalSampleRate),
		state:           stateSearchingVIS,
		Logger:          log.Default(),
	}

	if inputRate != cfg.InternalSampleRate {
		d.resampler = dsp.NewResampler(inputRate, cfg.InternalSampleRate, cfg.ResamplerPhases, cfg.ResamplerTapsPerPhase)
	}

	return d, nil
}

// OnModeDetected registers a callback fired the instant a VIS header
// completes, whether or not the decoded mode is one this decoder can
// demodulate.
func (d *Decoder) OnModeDetected(fn func(SSTVMode)) { d.onModeDetected = fn }

// OnLineDecoded registers a callback fired once per demodulated scan
// line, in top-to-bottom order.
func (d *Decoder) OnLineDecoded(fn OnLineDecoded) { d.onLineDecoded = fn }

// OnImageComplete registers a callback fired once every line of the
// active mode has been delivered.
func (d *Decoder) OnImageComplete(fn OnImageComplete) { d.onImageComplete = fn }

// Process feeds one block of real-valued audio samples at the
// decoder's configured input rate through the full pipeline. It may be
// called with blocks of any size, including one sample at a time;
// streaming state (resampler history, filter delay lines, state-machine
// timers) carries correctly across calls.
func (d *Decoder) Process(samples []float32) {
	internal := samples
	if d.resampler != nil {
		internal = d.resampler.Process(samples)
	}

	for _, s := range internal {
		filtered := d.bandpass.ProcessSample(float64(s))
		freq := d.freqEstimator.ProcessSample(filtered)
		d.feedFrequency(freq)
	}
}

func (d *Decoder) feedFrequency(freq float64) {
	switch d.state {
	case stateSearchingVIS:
		if mode, ok := d.visDetector.ProcessSample(freq); ok {
			d.handleModeDetected(mode)
		}
	case stateDecodingImage:
		d.pdDemod.ProcessFrequency(freq)
	case stateImageComplete:
		// Idle until Reset; per spec §4.6 the decoder does not
		// automatically rearm for a following transmission.
	}
}

func (d *Decoder) handleModeDetected(mode SSTVMode) {
	if d.Metrics != nil {
		d.Metrics.ModeDetections.WithLabelValues(mode.Family.String(), mode.Name).Inc()
	}
	if d.onModeDetected != nil {
		d.onModeDetected(mode)
	}

	if mode.Family != FamilyPD {
		d.Logger.Printf("[SSTV Decoder] VIS code %d is not a supported PD mode, resetting", mode.VISCode)
		d.Reset()
		return
	}

	timings := PDTimingsMap[mode.VISCode]
	d.pdDemod = NewPDDemodulator(d.cfg.InternalSampleRate, mode, timings, d.handleLineDecoded, d.handleImageComplete)
	d.pdDemod.Metrics = d.Metrics
	d.state = stateDecodingImage
	d.Logger.Printf("[SSTV Decoder] decoding %s (%dx%d)", mode.Name, mode.Width, mode.Height)
}

func (d *Decoder) handleLineDecoded(idx int, pixels []Pixel) {
	if d.onLineDecoded != nil {
		d.onLineDecoded(idx, pixels)
	}
}

func (d *Decoder) handleImageComplete(w, h int) {
	if d.onImageComplete != nil {
		d.onImageComplete(w, h)
	}
	d.state = stateImageComplete
	d.Logger.Printf("[SSTV Decoder] image complete (%dx%d)", w, h)
}

// Reset returns the decoder to stateSearchingVIS and clears every
// component's internal state — resampler history, filter delay lines,
// discriminator state, and both state machines — per spec §7. It does
// not unregister any callback.
func (d *Decoder) Reset() {
	d.state = stateSearchingVIS
	if d.resampler != nil {
		d.resampler.Reset()
	}
	d.bandpass.Clear()
	d.freqEstimator.Clear()
	d.visDetector.Reset()
	if d.pdDemod != nil {
		d.pdDemod.Reset()
	}
}

// State reports whether the decoder is searching for a VIS header,
// actively decoding an image, or has finished one and is idling until
// Reset.
func (d *Decoder) State() string {
	switch d.state {
	case stateSearchingVIS:
		return "SearchingVIS"
	case stateDecodingImage:
		return "DecodingImage"
	case stateImageComplete:
		return "ImageComplete"
	default:
		return "Unknown"
	}
}
