package sstv

import (
	"log"
	"math"

	"github.com/zerosignal0101/sstv-pd-decoder/dsp"
)

// pdState enumerates the PD line-group state machine's states, per spec
// §4.5 and original_source/src/sstv_pd120_demodulator.cpp.
type pdState int

const (
	pdIdle pdState = iota
	pdSync
	pdPorch
	pdY1
	pdRY
	pdBY
	pdY2
)

const (
	pdSyncFreqHz  = 1200.0
	pdSyncToleranceHz = 60.0
	pdAFCWindowStartMs = 5.0
	pdAFCWindowEndMs   = 15.0
	pdAFCAlpha         = 0.1
)

// OnLineDecoded is called once per fully demodulated scan line, in
// top-to-bottom order, with pixels sized to the mode's Width.
type OnLineDecoded func(lineIndex int, pixels []Pixel)

// OnImageComplete is called once every line of the active mode has been
// delivered via OnLineDecoded.
type OnImageComplete func(width, height int)

// PDDemodulator demodulates a frequency stream carrying PD line-groups
// (Sync, Porch, Y1, R-Y, B-Y, Y2) into RGB scan lines. It is
// reconfigured fresh for each detected mode; original_source hard-codes
// this state machine to PD120 alone, this type generalises it to any
// PDTimings/width/height combination (spec §6's full PD table).
type PDDemodulator struct {
	sampleRate   float64
	samplesPerMs float64
	timings      PDTimings
	width        int
	height       int

	state        pdState
	timerSamples float64
	freqOffsetHz float64

	segmentBuf []float64
	y1, cr, cb, y2 []uint8

	currentLine     int
	imageCompleted  bool

	onLine     OnLineDecoded
	onComplete OnImageComplete

	Logger  *log.Logger
	Metrics *Metrics
}

// NewPDDemodulator constructs a demodulator for one mode's timing and
// pixel grid.
func NewPDDemodulator(sampleRate float64, mode SSTVMode, timings PDTimings, onLine OnLineDecoded, onComplete OnImageComplete) *PDDemodulator {
	return &PDDemodulator{
		sampleRate:   sampleRate,
		samplesPerMs: sampleRate / 1000.0,
		timings:      timings,
		width:        mode.Width,
		height:       mode.Height,
		onLine:       onLine,
		onComplete:   onComplete,
		Logger:       log.Default(),
	}
}

// Reset returns the demodulator to pdIdle and clears all accumulated
// line-group and image state, including the AFC offset, per spec §7.
func (d *PDDemodulator) Reset() {
	d.state = pdIdle
	d.timerSamples = 0
	d.freqOffsetHz = 0
	d.segmentBuf = d.segmentBuf[:0]
	d.y1, d.cr, d.cb, d.y2 = nil, nil, nil, nil
	d.currentLine = 0
	d.imageCompleted = false
}

// FrequencyOffsetHz reports the demodulator's current AFC correction,
// for observability (wired to Metrics.AFCFrequencyOffset).
func (d *PDDemodulator) FrequencyOffsetHz() float64 {
	return d.freqOffsetHz
}

// IsComplete reports whether the active image has had every line
// delivered.
func (d *PDDemodulator) IsComplete() bool {
	return d.imageCompleted
}

func (d *PDDemodulator) samplesFor(ms float64) float64 {
	return ms * d.samplesPerMs
}

// ProcessFrequency advances the line-group state machine by one
// instantaneous-frequency sample.
func (d *PDDemodulator) ProcessFrequency(freq float64) {
	correctedFreq := freq - d.freqOffsetHz
	d.timerSamples++

	switch d.state {
	case pdIdle:
		if math.Abs(freq-pdSyncFreqHz) < pdSyncToleranceHz {
			d.state = pdSync
			d.timerSamples = 0
		}

	case pdSync:
		d.processSync(freq, correctedFreq)

	case pdPorch:
		if d.timerSamples >= d.samplesFor(d.timings.PorchMs) {
			d.state = pdY1
			d.timerSamples = 0
			d.segmentBuf = d.segmentBuf[:0]
		}

	case pdY1, pdRY, pdBY, pdY2:
		d.processDataSegment(correctedFreq)
	}
}

// processSync handles AFC measurement and the smart-sync early exit,
// both grounded on original_source/src/sstv_pd120_demodulator.cpp's
// SegmentType::SYNC branch.
func (d *PDDemodulator) processSync(rawFreq, correctedFreq float64) {
	startSamples := d.samplesFor(pdAFCWindowStartMs)
	endSamples := d.samplesFor(pdAFCWindowEndMs)

	if d.timerSamples > startSamples && d.timerSamples < endSamples {
		measured := rawFreq - pdSyncFreqHz
		d.freqOffsetHz = pdAFCAlpha*measured + (1-pdAFCAlpha)*d.freqOffsetHz
		if d.Metrics != nil {
			d.Metrics.AFCFrequencyOffset.Set(d.freqOffsetHz)
		}
	}

	if d.timerSamples >= endSamples {
		if math.Abs(correctedFreq-1500) < math.Abs(correctedFreq-pdSyncFreqHz) {
			d.state = pdPorch
			d.timerSamples = 0
			return
		}
	}

	if d.timerSamples >= d.samplesFor(d.timings.SyncMs) {
		d.state = pdPorch
		d.timerSamples = 0
	}
}

// processDataSegment accumulates one of the four equal-length data
// segments (Y1, R-Y, B-Y, Y2), resamples it to the mode's width when
// its duration elapses, and advances to the next segment — carrying
// any fractional overshoot into the next segment's timer, except at
// the Y2→Idle boundary where the line group is finalised and the timer
// hard-resets instead.
func (d *PDDemodulator) processDataSegment(correctedFreq float64) {
	d.segmentBuf = append(d.segmentBuf, correctedFreq)

	segSamples := d.samplesFor(d.timings.SegmentMs)
	if d.timerSamples < segSamples {
		return
	}

	pixels := resampleSegment(d.segmentBuf, d.width)
	switch d.state {
	case pdY1:
		d.y1 = pixels
	case pdRY:
		d.cr = pixels
	case pdBY:
		d.cb = pixels
	case pdY2:
		d.y2 = pixels
	}

	switch d.state {
	case pdY1:
		d.state = pdRY
	case pdRY:
		d.state = pdBY
	case pdBY:
		d.state = pdY2
	case pdY2:
		d.finalizeLineGroup()
		d.state = pdIdle
		d.timerSamples = 0
		d.segmentBuf = d.segmentBuf[:0]
		return
	}

	d.timerSamples -= segSamples
	d.segmentBuf = d.segmentBuf[:0]
}

// finalizeLineGroup converts the four accumulated segments into up to
// two RGB scan lines (Y1+chroma, then Y2+chroma) and fires onComplete
// once the mode's full height has been delivered. If a required
// segment never filled (e.g. a mid-image reset interrupted it), the
// group is dropped silently rather than emitting a corrupt line.
func (d *PDDemodulator) finalizeLineGroup() {
	if len(d.y1) == 0 || len(d.y2) == 0 || len(d.cr) == 0 || len(d.cb) == 0 {
		return
	}

	d.emitLine(d.y1)
	d.emitLine(d.y2)

	if d.currentLine >= d.height && !d.imageCompleted {
		d.imageCompleted = true
		if d.Metrics != nil {
			d.Metrics.ImagesCompleted.Inc()
		}
		if d.onComplete != nil {
			d.onComplete(d.width, d.height)
		}
	}
}

func (d *PDDemodulator) emitLine(luma []uint8) {
	if d.currentLine >= d.height {
		return
	}
	line := make([]Pixel, d.width)
	for x := 0; x < d.width; x++ {
		line[x] = ycbcrToRGB(luma[x], d.cb[x], d.cr[x])
	}
	if d.Metrics != nil {
		d.Metrics.LinesDecoded.Inc()
	}
	if d.onLine != nil {
		d.onLine(d.currentLine, line)
	}
	d.currentLine++
}

// resampleSegment linearly interpolates a variable-length buffer of
// instantaneous-frequency samples onto a fixed pixel grid of `width`
// columns, mapping each interpolated frequency to a pixel value only
// after interpolation — the open question spec.md §9 resolves this way,
// matching original_source's resample_segment.
func resampleSegment(buf []float64, width int) []uint8 {
	out := make([]uint8, width)
	if len(buf) == 0 {
		return out
	}

	n := float64(len(buf))
	for i := 0; i < width; i++ {
		pos := float64(i) * n / float64(width)
		idxA := int(pos)
		idxB := idxA + 1
		if idxB >= len(buf) {
			idxB = len(buf) - 1
		}
		weight := pos - float64(idxA)
		freq := buf[idxA]*(1-weight) + buf[idxB]*weight
		out[i] = dsp.FreqToPixelValue(freq)
	}
	return out
}
