// Package metrics holds the producer's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datasync"

var (
	upstreamAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Upstream fetch attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	upstreamRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_records_total",
			Help:      "Records returned by upstream sources.",
		},
		[]string{"source"},
	)
	publishResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish completions by topic and outcome.",
		},
		[]string{"topic", "outcome"},
	)
	ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler ticks by outcome (ok, failed, skipped).",
		},
		[]string{"outcome"},
	)
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one scheduler tick.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(upstreamAttempts, upstreamRecords, publishResults, ticks, tickDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveUpstreamAttempt(source string, err error) {
	upstreamAttempts.WithLabelValues(source, outcome(err)).Inc()
}

func AddUpstreamRecords(source string, n int) {
	upstreamRecords.WithLabelValues(source).Add(float64(n))
}

func ObservePublish(topic string, err error) {
	publishResults.WithLabelValues(topic, outcome(err)).Inc()
}

func ObserveTick(d time.Duration, outcome string) {
	ticks.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		tickDuration.Observe(d.Seconds())
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}
