package sstv

import "testing"

func TestNewDecoderSkipsResamplerWhenRatesMatch(t *testing.T) {
	cfg := DefaultConfig()
	d, err := NewDecoder(cfg.InternalSampleRate, cfg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if d.resampler != nil {
		t.Error("resampler should be nil when input rate equals internal rate")
	}
}

func TestNewDecoderBuildsResamplerOnRateMismatch(t *testing.T) {
	cfg := DefaultConfig()
	d, err := NewDecoder(44100, cfg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if d.resampler == nil {
		t.Error("resampler should be built when input rate differs from internal rate")
	}
}

func TestNewDecoderRejectsInvalidRates(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := NewDecoder(0, cfg); err == nil {
		t.Error("expected an error for a zero input sample rate")
	}
	badCfg := cfg
	badCfg.InternalSampleRate = 0
	if _, err := NewDecoder(44100, badCfg); err == nil {
		t.Error("expected an error for a zero internal sample rate")
	}
}

// TestDecoderOrchestratesModeToImageComplete drives the decoder's
// orchestration logic (feedFrequency, handleModeDetected,
// handleLineDecoded, handleImageComplete) directly with a synthesized
// frequency stream, bypassing the DSP front end whose settling
// behaviour is already covered by dsp package tests. This exercises
// exactly the wiring spec §4.6 describes: VIS header → mode dispatch →
// PD demodulation → completion.
func TestDecoderOrchestratesModeToImageComplete(t *testing.T) {
	cfg := DefaultConfig()
	d, err := NewDecoder(cfg.InternalSampleRate, cfg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	var detectedMode SSTVMode
	var lineCount int
	var completedW, completedH int
	d.OnModeDetected(func(m SSTVMode) { detectedMode = m })
	d.OnLineDecoded(func(idx int, pixels []Pixel) { lineCount++ })
	d.OnImageComplete(func(w, h int) { completedW, completedH = w, h })

	visFreqs, _, _ := buildVISHeaderFreqs(95, cfg.InternalSampleRate)
	for _, f := range visFreqs {
		d.feedFrequency(f)
	}

	if detectedMode.Name != "PD120" {
		t.Fatalf("detected mode = %+v, want PD120", detectedMode)
	}
	if d.State() != "DecodingImage" {
		t.Fatalf("decoder state = %s, want DecodingImage", d.State())
	}

	// Rather than feeding all 248 PD120 line groups, swap in a tiny 2x2
	// PDDemodulator with 10 ms segments (built the way handleModeDetected
	// builds one) and feed it a single line group, which is enough to
	// finish that image.
	mode := SSTVMode{Name: "PD120", VISCode: 95, Width: 2, Height: 2, Family: FamilyPD}
	timings := PDTimings{SyncMs: 20, PorchMs: 2.08, SegmentMs: 10}
	d.pdDemod = NewPDDemodulator(cfg.InternalSampleRate, mode, timings, d.handleLineDecoded, d.handleImageComplete)

	greyFreq := freqForPixelValue(128)
	var freqs []float64
	freqs = appendTone(freqs, 1200, timings.SyncMs, cfg.InternalSampleRate)
	freqs = appendTone(freqs, 1500, timings.PorchMs, cfg.InternalSampleRate)
	freqs = appendTone(freqs, greyFreq, timings.SegmentMs, cfg.InternalSampleRate)
	freqs = appendTone(freqs, greyFreq, timings.SegmentMs, cfg.InternalSampleRate)
	freqs = appendTone(freqs, greyFreq, timings.SegmentMs, cfg.InternalSampleRate)
	freqs = appendTone(freqs, greyFreq, timings.SegmentMs, cfg.InternalSampleRate)
	for _, f := range freqs {
		d.feedFrequency(f)
	}

	if lineCount != 2 {
		t.Fatalf("lineCount = %d, want 2", lineCount)
	}
	if completedW != 2 || completedH != 2 {
		t.Fatalf("onImageComplete got (%d,%d), want (2,2)", completedW, completedH)
	}
	if d.State() != "ImageComplete" {
		t.Fatalf("decoder state = %s, want ImageComplete", d.State())
	}
}

func TestDecoderResetsOnUnknownMode(t *testing.T) {
	cfg := DefaultConfig()
	d, err := NewDecoder(cfg.InternalSampleRate, cfg)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	visFreqs, _, _ := buildVISHeaderFreqs(44, cfg.InternalSampleRate) // not a PD code
	for _, f := range visFreqs {
		d.feedFrequency(f)
	}

	if d.State() != "SearchingVIS" {
		t.Fatalf("decoder state = %s, want SearchingVIS after an unrecognised VIS code", d.State())
	}
}

func TestConfigDefaultAndLoad(t *testing.T) {
	def := DefaultConfig()
	if def.InternalSampleRate != 11025.0 {
		t.Errorf("InternalSampleRate = %v, want 11025", def.InternalSampleRate)
	}

	yamlBytes := []byte("agc_target: 0.7\n")
	cfg, err := LoadConfig(yamlBytes)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AGCTarget != 0.7 {
		t.Errorf("AGCTarget = %v, want 0.7", cfg.AGCTarget)
	}
	if cfg.HilbertTaps != def.HilbertTaps {
		t.Errorf("HilbertTaps = %v, want default %v to survive a partial override", cfg.HilbertTaps, def.HilbertTaps)
	}
}
