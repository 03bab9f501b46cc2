package polling

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"ServingDashboard/pkg/series"
)

// Aggregator is the single serialization point between poller results and
// the catalog. It must only be used from one goroutine.
type Aggregator struct {
	catalog *series.Catalog
	sink    Sink
	log     *zap.Logger
	now     func() time.Time
}

// NewAggregator creates an aggregator writing into catalog.
func NewAggregator(catalog *series.Catalog, sink Sink, log *zap.Logger) *Aggregator {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{catalog: catalog, sink: sink, log: log, now: time.Now}
}

// Apply merges one result. A failed fetch pushes absence for every key of
// the source's families. Results for a tick that has already been sealed are
// discarded and reported as late.
func (a *Aggregator) Apply(r Result) {
	for _, family := range r.Families {
		var values map[string]float64
		if r.Err == nil {
			values = r.Values[family]
		}
		stats, err := a.catalog.Merge(family, r.Tick, values)
		switch {
		case errors.Is(err, series.ErrStaleTick):
			LateResultsTotal.WithLabelValues(r.Source).Inc()
			a.log.Debug("discarding late result",
				zap.String("source", r.Source),
				zap.String("family", family),
				zap.Uint64("tick", uint64(r.Tick)))
			continue
		case err != nil:
			a.log.Warn("merge failed",
				zap.String("source", r.Source),
				zap.String("family", family),
				zap.Error(err))
			continue
		}
		RecordMerge(family, stats.Present, stats.Absent, stats.Unknown)
		a.publish(family, r.Tick, stats, false)
	}
}

// Seed merges discovery values at the current tick.
func (a *Aggregator) Seed(values Values) {
	now := a.catalog.Now()
	for _, family := range a.catalog.Families() {
		v, ok := values[family]
		if !ok {
			continue
		}
		stats, err := a.catalog.Merge(family, now, v)
		if err != nil {
			a.log.Warn("seed failed", zap.String("family", family), zap.Error(err))
			continue
		}
		RecordMerge(family, stats.Present, stats.Absent, stats.Unknown)
		a.publish(family, now, stats, false)
	}
}

// Seal pushes absence into every family still missing the current tick.
func (a *Aggregator) Seal() {
	tick := a.catalog.Now()
	a.published(tick, a.catalog.Seal())
}

// Advance seals the current tick and starts the next one.
func (a *Aggregator) Advance() series.Tick {
	sealedTick := a.catalog.Now()
	next, sealed := a.catalog.Advance()
	a.published(sealedTick, sealed)
	CurrentTick.Set(float64(next))
	return next
}

func (a *Aggregator) published(tick series.Tick, sealed []string) {
	for _, family := range sealed {
		snap, err := a.catalog.Family(family)
		if err != nil {
			continue
		}
		var stats series.MergeStats
		for _, latest := range snap.Latest() {
			if latest.Valid {
				stats.Present++
			} else {
				stats.Absent++
			}
		}
		RecordMerge(family, stats.Present, stats.Absent, 0)
		a.emit(snap, tick, stats, true)
	}
}

func (a *Aggregator) publish(family string, tick series.Tick, stats series.MergeStats, sealed bool) {
	snap, err := a.catalog.Family(family)
	if err != nil {
		return
	}
	a.emit(snap, tick, stats, sealed)
}

func (a *Aggregator) emit(snap series.FamilySnapshot, tick series.Tick, stats series.MergeStats, sealed bool) {
	a.sink.Publish(Update{
		Tick:   tick,
		At:     a.now(),
		Sealed: sealed,
		Stats:  stats,
		Family: snap,
	})
}
