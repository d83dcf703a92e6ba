package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type GatewayMetrics struct {
	ActiveStreams       prometheus.Gauge
	WatchRequestCount   prometheus.Counter
	SegmentRequestCount prometheus.Counter

	TranscoderStarts   prometheus.Counter
	TranscoderRestarts prometheus.Counter
	SelfDestructCount  prometheus.Counter

	PollerExhaustedCount   prometheus.Counter
	SegmentWaitDurationSec prometheus.Histogram
}

func NewMetrics() *GatewayMetrics {
	m := &GatewayMetrics{
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "active_streams",
			Help: "The number of streams currently held in the registry",
		}),
		WatchRequestCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watch_request_count",
			Help: "The total number of requests to /watch.m3u8",
		}),
		SegmentRequestCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "segment_request_count",
			Help: "The total number of requests to /segment.ts",
		}),
		TranscoderStarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcoder_starts",
			Help: "The total number of transcoder processes launched",
		}),
		TranscoderRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcoder_restarts",
			Help: "The total number of transcoder restarts triggered by seeks or crashes",
		}),
		SelfDestructCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "self_destruct_count",
			Help: "The total number of streams torn down for inactivity",
		}),
		PollerExhaustedCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "poller_exhausted_count",
			Help: "The total number of segment requests that gave up waiting for a segment file",
		}),
		SegmentWaitDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "segment_wait_duration_seconds",
			Help:    "Time a segment request spent waiting for its file to appear",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	return m
}

var Metrics = NewMetrics()
