package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports operation latency, operation results and widget
// ticks as Prometheus collectors. It satisfies MetricsRecorder and TickRecorder.
type PrometheusRecorder struct {
	latency *prometheus.HistogramVec
	results *prometheus.CounterVec
	ticks   *prometheus.CounterVec
}

// NewPrometheusRecorder registers the recorder's collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "threadlab",
			Name:      "operation_duration_seconds",
			Help:      "Latency of session operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadlab",
			Name:      "operations_total",
			Help:      "Session operations by result.",
		}, []string{"operation", "result"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadlab",
			Name:      "widget_ticks_total",
			Help:      "Timer-driven widget advances.",
		}, []string{"widget"}),
	}
	for _, c := range []prometheus.Collector{r.latency, r.results, r.ticks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one operation outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := resultError
	if success {
		result = resultSuccess
	}
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, result).Inc()
}

// Tick counts one timer-driven widget advance.
func (r *PrometheusRecorder) Tick(widget Widget) {
	r.ticks.WithLabelValues(string(widget)).Inc()
}

// SessionGauge reports the live session count of svc at scrape time.
func SessionGauge(svc *Service) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "threadlab",
		Name:      "sessions_live",
		Help:      "Sessions currently mounted.",
	}, func() float64 { return float64(svc.SessionCount()) })
}
