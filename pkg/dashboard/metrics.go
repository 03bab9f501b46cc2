package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamSubscribers is the number of connected event stream clients
	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "servdash_stream_subscribers",
		Help: "Number of connected event stream clients",
	})

	// DroppedEventsTotal counts events a slow subscriber missed
	DroppedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "servdash_stream_dropped_events_total",
		Help: "Total number of stream events dropped because a subscriber was full",
	})

	// HTTPRequestsTotal counts dashboard requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servdash_http_requests_total",
		Help: "Total number of dashboard HTTP requests",
	}, []string{"route", "method", "status"})
)
