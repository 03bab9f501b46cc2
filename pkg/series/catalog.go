package series

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownFamily   = errors.New("unknown family")
	ErrDuplicateFamily = errors.New("family already exists")
	ErrDuplicateKey    = errors.New("key already registered")
	ErrFrozen          = errors.New("catalog key set is frozen")
	ErrFamilyStarted   = errors.New("family already holds samples")
	ErrStaleTick       = errors.New("result tick is no longer current")
	ErrAlreadyMerged   = errors.New("family already merged for tick")
)

// Catalog maps family name to its series and keeps every family aligned to
// the shared clock. It is safe for concurrent use; all mutation is expected to
// come from a single aggregation goroutine while readers take snapshots.
type Catalog struct {
	mu         sync.RWMutex
	maxSamples int
	clock      *Clock
	families   map[string]*Family
	order      []string
	frozen     bool
}

// NewCatalog creates an empty catalog whose windows hold maxSamples samples.
func NewCatalog(maxSamples int) *Catalog {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Catalog{
		maxSamples: maxSamples,
		clock:      NewClock(maxSamples),
		families:   make(map[string]*Family),
	}
}

// MaxSamples returns the window capacity.
func (c *Catalog) MaxSamples() int { return c.maxSamples }

// AddFamily declares a family. Families can only be added before Freeze.
func (c *Catalog) AddFamily(name, title, unit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrFrozen
	}
	if _, ok := c.families[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFamily, name)
	}
	c.families[name] = newFamily(name, title, unit, len(c.order), c.maxSamples)
	c.order = append(c.order, name)
	return nil
}

// Register adds a live key to a family.
func (c *Catalog) Register(family, key string) (Identity, error) {
	return c.register(family, key, nil, "")
}

// RegisterReference adds a constant-valued key to a family. When hueOf names
// a live key in the same family the reference series reuses its colour.
func (c *Catalog) RegisterReference(family, key string, value float64, hueOf string) (Identity, error) {
	v := value
	return c.register(family, key, &v, hueOf)
}

func (c *Catalog) register(family, key string, reference *float64, hueOf string) (Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return Identity{}, ErrFrozen
	}
	f, ok := c.families[family]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	id, err := f.register(key, reference, hueOf)
	if err != nil {
		return id, fmt.Errorf("register %s/%s: %w", family, key, err)
	}
	return id, nil
}

// Freeze fixes the key set. Later registrations fail with ErrFrozen.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// Frozen reports whether the key set is fixed.
func (c *Catalog) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Now returns the current tick.
func (c *Catalog) Now() Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock.Now()
}

// Merge pushes one sample per registered key of family for tick. Missing keys
// get the absence marker, unknown keys are dropped. A tick other than the
// current one is rejected with ErrStaleTick so late results never land in the
// wrong slot.
func (c *Catalog) Merge(family string, tick Tick, values map[string]float64) (MergeStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.families[family]
	if !ok {
		return MergeStats{}, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	if now := c.clock.Now(); tick != now {
		return MergeStats{}, fmt.Errorf("%w: tick %d, now %d", ErrStaleTick, tick, now)
	}
	if f.mergedAt(tick) {
		return MergeStats{}, fmt.Errorf("%w: %s at %d", ErrAlreadyMerged, family, tick)
	}
	return f.push(tick, values), nil
}

// Seal fills the absence marker into every family that has not been merged for
// the current tick and returns the names of the families it filled.
func (c *Catalog) Seal() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seal()
}

func (c *Catalog) seal() []string {
	now := c.clock.Now()
	var sealed []string
	for _, name := range c.order {
		f := c.families[name]
		if f.mergedAt(now) {
			continue
		}
		f.push(now, nil)
		sealed = append(sealed, name)
	}
	return sealed
}

// Advance seals the current tick and moves the clock forward, so every family
// grows by exactly one sample per tick whatever its pollers did.
func (c *Catalog) Advance() (Tick, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sealed := c.seal()
	return c.clock.Advance(), sealed
}

// Families returns the family names in declaration order.
func (c *Catalog) Families() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Keys returns the registered keys of family in discovery order.
func (c *Catalog) Keys(family string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.families[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	return f.Keys(), nil
}

// Family returns a deep copy of one family.
func (c *Catalog) Family(name string) (FamilySnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.families[name]
	if !ok {
		return FamilySnapshot{}, fmt.Errorf("%w: %s", ErrUnknownFamily, name)
	}
	return f.snapshot(), nil
}

// Snapshot returns a deep copy of the whole catalog. Its Labels include the
// open tick; each family's Labels cover only the samples it holds.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Tick:       c.clock.Now(),
		MaxSamples: c.maxSamples,
		Labels:     c.clock.Labels(),
		Families:   make([]FamilySnapshot, 0, len(c.order)),
	}
	for _, name := range c.order {
		snap.Families = append(snap.Families, c.families[name].snapshot())
	}
	return snap
}

// Stats summarises catalog size for status endpoints.
func (c *Catalog) Stats() CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CatalogStats{
		Tick:       c.clock.Now(),
		MaxSamples: c.maxSamples,
		Frozen:     c.frozen,
		Families:   len(c.order),
	}
	for _, name := range c.order {
		f := c.families[name]
		stats.Series += len(f.keys)
		stats.Samples += len(f.keys) * f.Len()
		stats.Evictions += f.evictions
	}
	return stats
}
