package polling

import (
	"time"

	"ServingDashboard/pkg/series"
)

// Update notifies a sink that one family gained a sample. Sealed is set when
// the sample is the absence marker pushed because no result arrived in time.
type Update struct {
	Tick   series.Tick           `json:"tick"`
	At     time.Time             `json:"at"`
	Sealed bool                  `json:"sealed"`
	Stats  series.MergeStats     `json:"stats"`
	Family series.FamilySnapshot `json:"family"`
}

// Sink consumes family updates. Publish is called from the engine goroutine
// and must not block.
type Sink interface {
	Publish(Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

func (f SinkFunc) Publish(u Update) { f(u) }

// MultiSink fans an update out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(u Update) {
	for _, s := range m {
		s.Publish(u)
	}
}

// NopSink discards updates.
type NopSink struct{}

func (NopSink) Publish(Update) {}
