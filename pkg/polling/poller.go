package polling

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"ServingDashboard/pkg/series"
	"ServingDashboard/pkg/services"
)

// ErrBusy is reported when a source is due while its previous fetch is still
// running.
var ErrBusy = errors.New("previous fetch still running")

// Status is the health of a poller.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDown      Status = "down"
)

// downAfter is the number of consecutive failures that marks a source down.
const downAfter = 3

// Result is the tagged outcome of one fetch. Tick is the tick the fetch was
// issued for; Values is nil when Err is set.
type Result struct {
	Source   string
	Families []string
	Tick     series.Tick
	Values   Values
	Err      error
	Duration time.Duration
}

// Poller wraps a Source with its cadence, deadline and health bookkeeping.
type Poller struct {
	source   Source
	families []string
	every    int
	timeout  time.Duration
	log      *zap.Logger

	mu          sync.RWMutex
	busy        bool
	status      Status
	lastFetch   time.Time
	lastDur     time.Duration
	lastErr     error
	fetchCount  int64
	errorCount  int64
	skipCount   int64
	consecutive int
}

// NewPoller polls src every `every` ticks; zero makes it discovery-only.
// Each fetch is bounded by timeout.
func NewPoller(src Source, every int, timeout time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Poller{
		source:  src,
		every:   every,
		timeout: timeout,
		log:     log.With(zap.String("source", src.Name())),
		status:  StatusUnknown,
	}
	for _, f := range src.Families() {
		p.families = append(p.families, f.Name)
	}
	return p
}

func (p *Poller) Name() string   { return p.source.Name() }
func (p *Poller) Source() Source { return p.source }

// Families returns the names of the families this poller feeds.
func (p *Poller) Families() []string { return p.families }

// Due reports whether the poller samples at tick.
func (p *Poller) Due(tick series.Tick) bool {
	return p.every > 0 && uint64(tick)%uint64(p.every) == 0
}

// Discover runs the source's discovery fetch under the poller's deadline.
func (p *Poller) Discover(ctx context.Context, now time.Time) (*Discovery, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	d, err := p.source.Discover(ctx, now)
	p.record(start, err)
	return d, err
}

// Fetch samples the source for tick. It never fails: errors are carried in
// the Result so the aggregator can push absence for every key.
func (p *Poller) Fetch(ctx context.Context, tick series.Tick, now time.Time) Result {
	res := Result{Source: p.Name(), Families: p.families, Tick: tick}

	p.mu.Lock()
	if p.busy {
		p.skipCount++
		p.mu.Unlock()
		SkippedPollsTotal.WithLabelValues(p.Name()).Inc()
		res.Err = ErrBusy
		return res
	}
	p.busy = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	values, err := p.source.Sample(ctx, now)
	res.Duration = p.record(start, err)
	if err != nil {
		res.Err = err
		return res
	}
	res.Values = values
	return res
}

func (p *Poller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Poller) record(start time.Time, err error) time.Duration {
	dur := time.Since(start)
	reason := services.Reason(err)

	p.mu.Lock()
	p.lastFetch = start
	p.lastDur = dur
	p.fetchCount++
	if err != nil {
		p.lastErr = err
		p.errorCount++
		p.consecutive++
	} else {
		p.lastErr = nil
		p.consecutive = 0
	}
	p.updateStatus()
	consecutive := p.consecutive
	p.mu.Unlock()

	RecordPoll(p.Name(), dur.Seconds(), reason)
	if err != nil {
		p.log.Warn("fetch failed",
			zap.String("reason", reason),
			zap.Int("consecutive_errors", consecutive),
			zap.Error(err))
	} else {
		p.log.Debug("fetch succeeded", zap.Duration("duration", dur))
	}
	return dur
}

// updateStatus must be called with the lock held.
func (p *Poller) updateStatus() {
	switch {
	case p.consecutive == 0:
		p.status = StatusHealthy
	case p.consecutive < downAfter:
		p.status = StatusUnhealthy
	default:
		p.status = StatusDown
	}
}

// Status returns the current health.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// PollerStats is a point-in-time view of a poller.
type PollerStats struct {
	Source            string        `json:"source"`
	Families          []string      `json:"families"`
	Every             int           `json:"every"`
	Status            Status        `json:"status"`
	LastFetch         time.Time     `json:"last_fetch"`
	LastDuration      time.Duration `json:"last_duration"`
	LastError         string        `json:"last_error,omitempty"`
	FetchCount        int64         `json:"fetch_count"`
	ErrorCount        int64         `json:"error_count"`
	SkipCount         int64         `json:"skip_count"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
}

// Stats returns statistics for this poller.
func (p *Poller) Stats() PollerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var lastErr string
	if p.lastErr != nil {
		lastErr = p.lastErr.Error()
	}
	return PollerStats{
		Source:            p.Name(),
		Families:          p.families,
		Every:             p.every,
		Status:            p.status,
		LastFetch:         p.lastFetch,
		LastDuration:      p.lastDur,
		LastError:         lastErr,
		FetchCount:        p.fetchCount,
		ErrorCount:        p.errorCount,
		SkipCount:         p.skipCount,
		ConsecutiveErrors: p.consecutive,
	}
}
