package sstv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors this decoder updates from
// its hot path, grounded on the teacher's decoder_metrics.go /
// prometheus.go pattern: a struct of collectors built once via
// promauto and referenced by field, never looked up by name at
// runtime. A nil *Metrics is valid everywhere it's used — every call
// site nil-checks before touching a field — so embedding this decoder
// in a program that doesn't run a Prometheus registry costs nothing.
type Metrics struct {
	ModeDetections     *prometheus.CounterVec
	LinesDecoded       prometheus.Counter
	ImagesCompleted    prometheus.Counter
	VISParityFailures  prometheus.Counter
	AFCFrequencyOffset prometheus.Gauge
}

// NewMetrics registers this decoder's collectors against reg and
// returns the bundle. Pass prometheus.DefaultRegisterer for the global
// registry, or a fresh *prometheus.Registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ModeDetections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "mode_detections_total",
			Help:      "VIS headers detected, partitioned by family and recognised mode name.",
		}, []string{"family", "mode"}),
		LinesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "lines_decoded_total",
			Help:      "PD scan lines demodulated into pixel rows.",
		}),
		ImagesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "images_completed_total",
			Help:      "PD images whose every scan line was decoded.",
		}),
		VISParityFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sstv",
			Name:      "vis_parity_failures_total",
			Help:      "VIS headers rejected for failing the even-parity check.",
		}),
		AFCFrequencyOffset: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sstv",
			Name:      "afc_frequency_offset_hz",
			Help:      "Current automatic-frequency-control offset applied by the active PD demodulator.",
		}),
	}
}
