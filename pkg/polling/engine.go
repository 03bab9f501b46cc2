package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ServingDashboard/pkg/series"
)

// Options configures an Engine.
type Options struct {
	Period     time.Duration
	MaxSamples int
	Sink       Sink
	Logger     *zap.Logger
}

// Engine owns the clock, the catalog and the pollers of one session. The Run
// goroutine is the only writer of the catalog; fetches run in their own
// goroutines and hand back tagged results over a channel.
type Engine struct {
	period  time.Duration
	catalog *series.Catalog
	pollers []*Poller
	agg     *Aggregator
	log     *zap.Logger
	results chan Result
	now     func() time.Time

	wg         sync.WaitGroup
	discovered bool
}

// NewEngine declares every family of every poller in the catalog.
func NewEngine(opts Options, pollers ...*Poller) (*Engine, error) {
	if opts.Period <= 0 {
		return nil, fmt.Errorf("sampling period must be positive, got %v", opts.Period)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	catalog := series.NewCatalog(opts.MaxSamples)
	for _, p := range pollers {
		for _, f := range p.Source().Families() {
			if err := catalog.AddFamily(f.Name, f.Title, f.Unit); err != nil {
				return nil, fmt.Errorf("source %s: %w", p.Name(), err)
			}
		}
	}

	return &Engine{
		period:  opts.Period,
		catalog: catalog,
		pollers: pollers,
		agg:     NewAggregator(catalog, opts.Sink, opts.Logger),
		log:     opts.Logger,
		results: make(chan Result, len(pollers)),
		now:     time.Now,
	}, nil
}

// Catalog returns the engine's catalog for read-only use.
func (e *Engine) Catalog() *series.Catalog { return e.catalog }

// Pollers returns the engine's pollers.
func (e *Engine) Pollers() []*Poller { return e.pollers }

// Period returns the tick period.
func (e *Engine) Period() time.Duration { return e.period }

// Discover runs every discovery fetch concurrently, registers the discovered
// keys (live keys before reference keys, sources in declaration order),
// freezes the key set and seeds tick 0. A failed discovery leaves that
// source's families without keys; the failures are returned joined, but the
// engine is usable either way.
func (e *Engine) Discover(ctx context.Context) error {
	if e.discovered {
		return nil
	}
	now := e.now()
	found := make([]*Discovery, len(e.pollers))
	errs := make([]error, len(e.pollers))

	var g errgroup.Group
	for i, p := range e.pollers {
		i, p := i, p
		g.Go(func() error {
			d, err := p.Discover(ctx, now)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.Name(), err)
				return nil
			}
			found[i] = d
			return nil
		})
	}
	_ = g.Wait()

	families := e.catalog.Families()
	for _, family := range families {
		for _, d := range found {
			if d == nil {
				continue
			}
			for _, key := range d.Keys[family] {
				e.register(family, key, func() (series.Identity, error) { return e.catalog.Register(family, key) })
			}
		}
	}
	for _, family := range families {
		for _, d := range found {
			if d == nil {
				continue
			}
			for _, ref := range d.References[family] {
				e.register(family, ref.Key, func() (series.Identity, error) {
					return e.catalog.RegisterReference(family, ref.Key, ref.Value, ref.HueOf)
				})
			}
		}
	}
	e.catalog.Freeze()

	seed := make(Values)
	for _, d := range found {
		if d == nil {
			continue
		}
		for family, values := range d.Seed {
			for k, v := range values {
				seed.Set(family, k, v)
			}
		}
	}
	e.agg.Seed(seed)
	e.agg.Seal()
	e.discovered = true

	for _, family := range families {
		keys, _ := e.catalog.Keys(family)
		e.log.Info("family discovered", zap.String("family", family), zap.Strings("keys", keys))
	}
	return errors.Join(errs...)
}

func (e *Engine) register(family, key string, fn func() (series.Identity, error)) {
	id, err := fn()
	if errors.Is(err, series.ErrDuplicateKey) {
		return
	}
	if err != nil {
		e.log.Warn("register failed", zap.String("family", family), zap.String("key", key), zap.Error(err))
		return
	}
	e.log.Debug("registered series", zap.String("family", family), zap.String("key", key), zap.String("color", id.Color))
}

// Run ticks until ctx is cancelled. Discovery runs first if it has not.
func (e *Engine) Run(ctx context.Context) error {
	if !e.discovered {
		if err := e.Discover(ctx); err != nil {
			e.log.Warn("discovery incomplete", zap.Error(err))
		}
	}

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	defer e.wg.Wait()

	e.log.Info("engine started",
		zap.Duration("period", e.period),
		zap.Int("max_samples", e.catalog.MaxSamples()),
		zap.Int("pollers", len(e.pollers)))

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped", zap.Uint64("tick", uint64(e.catalog.Now())))
			return nil
		case r := <-e.results:
			e.agg.Apply(r)
		case <-ticker.C:
			e.advance(ctx)
		}
	}
}

// advance merges every result already waiting, then seals the tick and
// dispatches the pollers due on the next one. A result and the ticker can be
// ready together; select would pick either.
func (e *Engine) advance(ctx context.Context) series.Tick {
	for pending := true; pending; {
		select {
		case r := <-e.results:
			e.agg.Apply(r)
		default:
			pending = false
		}
	}
	tick := e.agg.Advance()
	e.dispatch(ctx, tick)
	return tick
}

func (e *Engine) dispatch(ctx context.Context, tick series.Tick) {
	now := e.now()
	for _, p := range e.pollers {
		if !p.Due(tick) {
			continue
		}
		p := p
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			r := p.Fetch(ctx, tick, now)
			select {
			case e.results <- r:
			case <-ctx.Done():
			}
		}()
	}
}

// Step advances one tick and blocks until every due fetch has returned and
// been merged. It is the synchronous counterpart of one Run iteration.
func (e *Engine) Step(ctx context.Context) series.Tick {
	tick := e.agg.Advance()
	now := e.now()

	var due []*Poller
	for _, p := range e.pollers {
		if p.Due(tick) {
			due = append(due, p)
		}
	}
	results := make([]Result, len(due))
	var g errgroup.Group
	for i, p := range due {
		i, p := i, p
		g.Go(func() error {
			results[i] = p.Fetch(ctx, tick, now)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		e.agg.Apply(r)
	}
	return tick
}
