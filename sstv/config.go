package sstv

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zerosignal0101/sstv-pd-decoder/dsp"
)

// Config carries the tunable DSP constants the decoder's components
// otherwise default, mirroring the teacher's root Config struct: a
// plain yaml-tagged struct loadable from bytes, with a DefaultConfig
// constructor callers can start from and override selectively.
type Config struct {
	InternalSampleRate float64 `yaml:"internal_sample_rate_hz"`

	BandpassTaps    int     `yaml:"bandpass_taps"`
	BandpassLowHz   float64 `yaml:"bandpass_low_hz"`
	BandpassHighHz  float64 `yaml:"bandpass_high_hz"`

	HilbertTaps  int     `yaml:"hilbert_taps"`
	DCBlockAlpha float64 `yaml:"dc_block_alpha"`
	AGCTarget    float64 `yaml:"agc_target"`
	AGCAttack    float64 `yaml:"agc_attack"`
	AGCRelease   float64 `yaml:"agc_release"`

	ResamplerPhases       int `yaml:"resampler_phases"`
	ResamplerTapsPerPhase int `yaml:"resampler_taps_per_phase"`
}

// DefaultConfig returns the spec-mandated tuning constants.
func DefaultConfig() Config {
	return Config{
		InternalSampleRate: 11025.0,

		BandpassTaps:   101,
		BandpassLowHz:  500,
		BandpassHighHz: 2500,

		HilbertTaps:  63,
		DCBlockAlpha: 0.995,
		AGCTarget:    0.5,
		AGCAttack:    0.01,
		AGCRelease:   0.001,

		ResamplerPhases:       dsp.DefaultResamplerPhases,
		ResamplerTapsPerPhase: dsp.DefaultResamplerTapsPerPhase,
	}
}

// LoadConfig parses YAML bytes into a Config seeded from DefaultConfig,
// so a caller's file only needs to set the fields it wants to override.
// The module does not own a config file format or path — callers read
// their own file and hand this function the bytes.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("sstv: parsing config: %w", err)
	}
	return cfg, nil
}

func (c Config) freqEstimatorConfig() dsp.FreqEstimatorConfig {
	return dsp.FreqEstimatorConfig{
		DCBlockAlpha: c.DCBlockAlpha,
		AGCTarget:    c.AGCTarget,
		AGCAttack:    c.AGCAttack,
		AGCRelease:   c.AGCRelease,
		HilbertTaps:  c.HilbertTaps,
	}
}
