package sstv

import (
	"log"
	"math"
	"sort"
)

// visState enumerates the VIS header state machine's states, per spec
// §4.4 and original_source/src/sstv_vis_decoder.cpp.
type visState int

const (
	visIdle visState = iota
	visPreamble
	visLeaderBurst1
	visBreak1200
	visLeaderBurst2
	visStartBit
	visDataBits
	visParityBit
	visStopBit
	visComplete
)

const (
	toneToleranceHz  = 60.0
	offFreqBudgetMs  = 15.0
	medianWindow     = 9
	silenceFloorHz   = 100.0
	visDataBitCount  = 7
)

// preambleTones is the 8-tone calibration burst preceding every VIS
// header, per spec §4.4 / original_source's DEFAULT_PREAMBLE_TONES.
// Each tone lasts 100ms; visIdle consumes tone 0, visPreamble the rest.
var preambleTones = [8]float64{1900, 1500, 1900, 1500, 2300, 1500, 2300, 1500}

// VISDetector is a timed state machine that recognises a VIS header in
// an instantaneous-frequency stream and decodes the 7-bit mode code it
// carries, with even-parity verification.
type VISDetector struct {
	sampleRate   float64
	samplesPerMs float64

	state          visState
	timerSamples   float64
	offFreqSamples float64
	preambleStep   int

	bitIndex    int
	bitSum      float64
	bitCount    int
	decodedBits int

	medianBuf []float64
	medianPos int
	medianLen int

	Logger  *log.Logger
	Metrics *Metrics
}

// NewVISDetector constructs a detector for the given internal sample
// rate, starting in visIdle.
func NewVISDetector(sampleRate float64) *VISDetector {
	return &VISDetector{
		sampleRate:   sampleRate,
		samplesPerMs: sampleRate / 1000.0,
		medianBuf:    make([]float64, 0, medianWindow),
		Logger:       log.Default(),
	}
}

// Reset returns the detector to visIdle and clears all transient state,
// per spec §7 — a full reset, used on parity failure, unknown tones
// persisting past the off-frequency budget, or silence.
func (v *VISDetector) Reset() {
	v.state = visIdle
	v.timerSamples = 0
	v.offFreqSamples = 0
	v.preambleStep = 0
	v.bitIndex = 0
	v.bitSum = 0
	v.bitCount = 0
	v.decodedBits = 0
	v.medianBuf = v.medianBuf[:0]
	v.medianPos = 0
	v.medianLen = 0
}

func (v *VISDetector) durationSamples(ms float64) float64 {
	return ms * v.samplesPerMs
}

// medianFilter pushes a raw frequency sample into the 9-sample ring
// buffer and returns the median of whatever is currently buffered, per
// spec §4.4's noise-rejecting pre-filter.
func (v *VISDetector) medianFilter(raw float64) float64 {
	if len(v.medianBuf) < medianWindow {
		v.medianBuf = append(v.medianBuf, raw)
	} else {
		v.medianBuf[v.medianPos] = raw
		v.medianPos = (v.medianPos + 1) % medianWindow
	}

	sorted := append([]float64(nil), v.medianBuf...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func withinTolerance(freq, target, tolerance float64) bool {
	return math.Abs(freq-target) <= tolerance
}

// transition moves to a new state and clears the per-state timers, per
// the timed-FSM contract in spec §4.4.
func (v *VISDetector) transition(next visState) {
	v.state = next
	v.timerSamples = 0
	v.offFreqSamples = 0
	v.bitSum = 0
	v.bitCount = 0
}

// toneHold implements a single tone-tolerant waiting state shared by
// LeaderBurst1, Break1200, LeaderBurst2, StartBit: hold at targetHz for
// durationMs, tolerating up to offFreqBudgetMs cumulative off-tone
// samples before a hard reset to visIdle.
func (v *VISDetector) toneHold(freq, targetHz, durationMs float64, next visState) {
	if withinTolerance(freq, targetHz, toneToleranceHz) {
		if v.timerSamples >= v.durationSamples(durationMs) {
			v.transition(next)
		}
		return
	}
	v.offFreqSamples++
	if v.offFreqSamples > v.durationSamples(offFreqBudgetMs) {
		v.Reset()
	}
}

// ProcessSample advances the state machine by one instantaneous
// frequency sample. It returns (mode, true) exactly once, the instant
// the stop bit completes and a full VIS header has been decoded;
// otherwise it returns (zero value, false).
func (v *VISDetector) ProcessSample(rawFreq float64) (SSTVMode, bool) {
	if rawFreq < silenceFloorHz {
		if v.state != visIdle {
			v.Reset()
		}
		return SSTVMode{}, false
	}

	freq := v.medianFilter(rawFreq)
	v.timerSamples++

	switch v.state {
	case visIdle:
		if withinTolerance(freq, preambleTones[0], toneToleranceHz) {
			if v.timerSamples >= v.durationSamples(100) {
				v.preambleStep = 1
				v.transition(visPreamble)
			}
		} else {
			v.timerSamples = 0
		}

	case visPreamble:
		target := preambleTones[v.preambleStep]
		if withinTolerance(freq, target, toneToleranceHz) {
			if v.timerSamples >= v.durationSamples(100) {
				v.preambleStep++
				v.timerSamples = 0
				v.offFreqSamples = 0
				if v.preambleStep >= len(preambleTones) {
					v.transition(visLeaderBurst1)
				}
			}
		} else {
			v.offFreqSamples++
			if v.offFreqSamples > v.durationSamples(offFreqBudgetMs) {
				v.Reset()
			}
		}

	case visLeaderBurst1:
		v.toneHold(freq, 1900, 300, visBreak1200)

	case visBreak1200:
		v.toneHold(freq, 1200, 10, visLeaderBurst2)

	case visLeaderBurst2:
		v.toneHold(freq, 1900, 300, visStartBit)

	case visStartBit:
		v.toneHold(freq, 1200, 30, visDataBits)

	case visDataBits:
		v.bitSum += freq
		v.bitCount++
		if v.timerSamples >= v.durationSamples(30) {
			mean := v.bitSum / float64(v.bitCount)
			bit := 0
			if mean < 1200 {
				bit = 1
			}
			v.decodedBits |= bit << v.bitIndex
			v.bitIndex++
			v.timerSamples = 0
			v.bitSum = 0
			v.bitCount = 0
			if v.bitIndex >= visDataBitCount {
				v.transition(visParityBit)
			}
		}

	case visParityBit:
		v.bitSum += freq
		v.bitCount++
		if v.timerSamples >= v.durationSamples(30) {
			mean := v.bitSum / float64(v.bitCount)
			parityBit := 0
			if mean < 1200 {
				parityBit = 1
			}
			ones := popcount(v.decodedBits)
			if (ones+parityBit)%2 == 0 {
				v.transition(visStopBit)
			} else {
				if v.Metrics != nil {
					v.Metrics.VISParityFailures.Inc()
				}
				v.Logger.Printf("[SSTV VIS] parity check failed for code %d, resetting", v.decodedBits)
				v.Reset()
			}
		}

	case visStopBit:
		if withinTolerance(freq, 1200, toneToleranceHz) {
			if v.timerSamples >= v.durationSamples(30) {
				mode := LookupMode(v.decodedBits)
				v.state = visComplete
				return mode, true
			}
			return SSTVMode{}, false
		}
		v.offFreqSamples++
		if v.offFreqSamples > v.durationSamples(offFreqBudgetMs) {
			v.Reset()
		}

	case visComplete:
		// Latched; the orchestrator switches the decoder away from VIS
		// detection on the first (mode, true) return, so further calls
		// here are a defensive no-op.
	}

	return SSTVMode{}, false
}

// popcount counts the set bits of a non-negative v (here the decoded
// 7-bit VIS code).
func popcount(v int) int {
	n := 0
	for v != 0 {
		n += v & 1
		v >>= 1
	}
	return n
}

