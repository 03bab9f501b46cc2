package polling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollsTotal is the total number of fetches issued per source
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_polls_total",
		Help: "Total number of fetches issued",
	}, []string{"source"})

	// PollErrorsTotal is the total number of failed fetches
	PollErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_poll_errors_total",
		Help: "Total number of failed fetches",
	}, []string{"source", "reason"})

	// PollLatencySeconds is the histogram of fetch latency
	PollLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "servdash_poll_latency_seconds",
		Help:    "Histogram of fetch latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"source"})

	// SkippedPollsTotal counts ticks where a source was due but still busy
	SkippedPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_skipped_polls_total",
		Help: "Total number of due fetches skipped because the previous one was still running",
	}, []string{"source"})

	// LateResultsTotal counts results discarded because their tick had passed
	LateResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_late_results_total",
		Help: "Total number of results that arrived after their tick was sealed",
	}, []string{"source"})

	// SamplesTotal counts pushed samples by family and state
	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_samples_total",
		Help: "Total number of samples pushed into the catalog",
	}, []string{"family", "state"})

	// UnknownKeysTotal counts values dropped because their key was never discovered
	UnknownKeysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_unknown_keys_total",
		Help: "Total number of values dropped for undiscovered keys",
	}, []string{"family"})

	// CurrentTick is the shared clock value
	CurrentTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "servdash_tick",
		Help: "Current tick of the sampling clock",
	})
)

// RecordPoll records one fetch.
func RecordPoll(source string, seconds float64, reason string) {
	PollsTotal.WithLabelValues(source).Inc()
	PollLatencySeconds.WithLabelValues(source).Observe(seconds)
	if reason != "" {
		PollErrorsTotal.WithLabelValues(source, reason).Inc()
	}
}

// RecordMerge records the outcome of one family merge.
func RecordMerge(family string, present, absent, unknown int) {
	SamplesTotal.WithLabelValues(family, "present").Add(float64(present))
	SamplesTotal.WithLabelValues(family, "absent").Add(float64(absent))
	if unknown > 0 {
		UnknownKeysTotal.WithLabelValues(family).Add(float64(unknown))
	}
}
