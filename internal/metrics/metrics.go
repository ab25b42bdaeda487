// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesCapturedTotal counts frames read off the interface
	FramesCapturedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_frames_captured_total",
			Help: "Total number of frames captured",
		},
		[]string{"interface"},
	)

	// FramesProducedTotal counts frames queued for transmission by extension
	FramesProducedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_frames_produced_total",
			Help: "Total number of frames produced by extensions",
		},
		[]string{"extension"},
	)

	// IngestErrorsTotal counts failed extension ingest calls
	IngestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_ingest_errors_total",
			Help: "Total number of extension ingest errors",
		},
		[]string{"extension"},
	)

	// FramesSentTotal counts frames written to the interface
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_frames_sent_total",
			Help: "Total number of frames sent",
		},
		[]string{"interface"},
	)

	// SendErrorsTotal counts failed frame injections
	SendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_send_errors_total",
			Help: "Total number of frame send errors",
		},
		[]string{"interface"},
	)

	// OutboundQueueDepth tracks the current outbound queue length
	OutboundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "strix_outbound_queue_depth",
			Help: "Current number of frames in the outbound queue",
		},
	)

	// CaptureFailuresTotal counts capture loop failures by interface
	CaptureFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_capture_failures_total",
			Help: "Total number of capture failures",
		},
		[]string{"interface"},
	)
)
