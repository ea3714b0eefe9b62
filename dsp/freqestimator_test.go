package dsp

import (
	"math"
	"testing"
)

// synthTone generates n samples of a sine wave at freqHz sampled at
// sampleRate, matching the synthesis style of
// other_examples/2bitoperations-rtldavis's dsp_test.go (build a known
// signal, feed it through the component, assert the decoded result).
func synthTone(freqHz, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		out[i] = math.Sin(2 * math.Pi * freqHz * t)
	}
	return out
}

func TestFrequencyEstimatorTracksPureTone(t *testing.T) {
	const sampleRate = 11025.0
	cfg := DefaultFreqEstimatorConfig()
	est := NewFrequencyEstimator(sampleRate, cfg)

	bp := NewFIRFilter(MakeBandpassCoeffs(101, sampleRate, 500, 2500))

	const toneFreq = 1900.0
	samples := synthTone(toneFreq, sampleRate, 2000)

	var last float64
	settle := bp.GroupDelay() + est.groupDelay + cfg.HilbertTaps + 50
	for i, s := range samples {
		filtered := bp.ProcessSample(s)
		f := est.ProcessSample(filtered)
		if i >= settle {
			last = f
		}
	}

	const tolerance = 40.0
	if diff := last - toneFreq; diff > tolerance || diff < -tolerance {
		t.Fatalf("estimated frequency %.1f Hz, want within %.0f Hz of %.1f Hz", last, tolerance, toneFreq)
	}
}

func TestFreqToPixelValueClamps(t *testing.T) {
	cases := []struct {
		freq float64
		want uint8
	}{
		{1000, 0},
		{1500, 0},
		{1900, 127},
		{2300, 255},
		{3000, 255},
	}
	for _, c := range cases {
		got := FreqToPixelValue(c.freq)
		if diff := int(got) - int(c.want); diff > 1 || diff < -1 {
			t.Errorf("FreqToPixelValue(%.0f) = %d, want ~%d", c.freq, got, c.want)
		}
	}
}
