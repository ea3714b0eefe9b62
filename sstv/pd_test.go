package sstv

import (
	"testing"
)

// freqForPixelValue is the inverse of dsp.FreqToPixelValue, used to
// synthesize a frequency stream that should decode to a known pixel
// value.
func freqForPixelValue(v uint8) float64 {
	return 1500 + float64(v)/255.0*800.0
}

func TestResampleSegmentInterpolatesLinearly(t *testing.T) {
	buf := []float64{1500, 2300} // black then white, two raw samples
	out := resampleSegment(buf, 4)
	if len(out) != 4 {
		t.Fatalf("len(out) = %d, want 4", len(out))
	}
	if out[0] != 0 {
		t.Errorf("out[0] = %d, want 0 (black)", out[0])
	}
	// Interpolated values should be non-decreasing across the ramp.
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Errorf("out is not monotonic at %d: %v", i, out)
		}
	}
}

func TestResampleSegmentEmptyBufferIsBlack(t *testing.T) {
	out := resampleSegment(nil, 8)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %d, want 0 for an empty segment buffer", i, v)
		}
	}
}

// TestPDDemodulatorDecodesGreyLineGroup drives a tiny synthetic PD mode
// through one full line group (Sync, Porch, Y1, R-Y, B-Y, Y2) of
// uniform mid-grey luma and neutral chroma and checks both scan lines
// come out as an even grey and that the image (2 lines tall) completes.
func TestPDDemodulatorDecodesGreyLineGroup(t *testing.T) {
	mode := SSTVMode{Name: "TestPD", Width: 2, Height: 2, Family: FamilyPD}
	timings := PDTimings{SyncMs: 20, PorchMs: 2.08, SegmentMs: 10}

	var lines [][]Pixel
	completed := false
	demod := NewPDDemodulator(testSampleRate, mode, timings,
		func(idx int, pixels []Pixel) { lines = append(lines, pixels) },
		func(w, h int) { completed = true },
	)

	const grey = 128
	greyFreq := freqForPixelValue(grey)
	neutralFreq := freqForPixelValue(128)

	var freqs []float64
	freqs = appendTone(freqs, 1200, timings.SyncMs, testSampleRate)
	freqs = appendTone(freqs, 1500, timings.PorchMs, testSampleRate)
	freqs = appendTone(freqs, greyFreq, timings.SegmentMs, testSampleRate)    // Y1
	freqs = appendTone(freqs, neutralFreq, timings.SegmentMs, testSampleRate) // R-Y
	freqs = appendTone(freqs, neutralFreq, timings.SegmentMs, testSampleRate) // B-Y
	freqs = appendTone(freqs, greyFreq, timings.SegmentMs, testSampleRate)    // Y2

	for _, f := range freqs {
		demod.ProcessFrequency(f)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d decoded lines, want 2", len(lines))
	}
	if !completed {
		t.Fatal("image never reported complete for a 2-line mode after both lines decoded")
	}

	const tolerance = 12
	for li, line := range lines {
		for x, p := range line {
			if absDiff(int(p.R), grey) > tolerance || absDiff(int(p.G), grey) > tolerance || absDiff(int(p.B), grey) > tolerance {
				t.Errorf("line %d pixel %d = %+v, want ~grey(%d) within %d", li, x, p, grey, tolerance)
			}
		}
	}
}

func TestPDDemodulatorResetClearsAFCOffset(t *testing.T) {
	mode := SSTVMode{Name: "TestPD", Width: 2, Height: 2, Family: FamilyPD}
	timings := PDTimings{SyncMs: 20, PorchMs: 2.08, SegmentMs: 10}
	demod := NewPDDemodulator(testSampleRate, mode, timings, nil, nil)

	freqs := appendTone(nil, 1210, timings.SyncMs, testSampleRate)
	for _, f := range freqs {
		demod.ProcessFrequency(f)
	}
	if demod.FrequencyOffsetHz() == 0 {
		t.Skip("AFC offset did not move within the synthetic sync window; timing constants changed")
	}

	demod.Reset()
	if demod.FrequencyOffsetHz() != 0 {
		t.Errorf("FrequencyOffsetHz() = %v after Reset, want 0", demod.FrequencyOffsetHz())
	}
}

func absDiff(a, b int) int {
	if a < b {
		return b - a
	}
	return a - b
}
