package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the voicemail board.
type Metrics struct {
	// 번호 확인
	AvailabilityChecks *prometheus.CounterVec

	// 녹음 등록
	Claims            *prometheus.CounterVec
	TranscodeDuration prometheus.Histogram
	RecordingBytes    prometheus.Histogram

	// 재생
	PlaybackLookups *prometheus.CounterVec

	// 스트리밍 캡처
	ActiveCaptures prometheus.Gauge
	CaptureStops   *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AvailabilityChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemail_availability_checks_total",
			Help: "Number availability checks by result (free, occupied, error)",
		}, []string{"result"}),
		Claims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemail_claims_total",
			Help: "Claim attempts by outcome",
		}, []string{"outcome"}),
		TranscodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicemail_transcode_duration_seconds",
			Help:    "Time spent converting uploads to canonical WAV",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		RecordingBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicemail_recording_bytes",
			Help:    "Size of stored canonical WAV files",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),
		PlaybackLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemail_playback_lookups_total",
			Help: "Playback lookups by result (found, not_found, error)",
		}, []string{"result"}),
		ActiveCaptures: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicemail_active_captures",
			Help: "Streaming capture sessions currently open",
		}),
		CaptureStops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemail_capture_stops_total",
			Help: "Streaming capture sessions by stop reason",
		}, []string{"reason"}),
	}
}
