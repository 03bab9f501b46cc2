package series

// Series is the bounded rolling history of one key.
type Series struct {
	Key      string
	Identity Identity

	// reference is set for constant-valued overlays such as SLA targets.
	reference *float64
	hue       int
	samples   *window[Sample]
}

// IsReference reports whether the series carries a constant instead of live data.
func (s *Series) IsReference() bool { return s.reference != nil }

// Len returns the number of samples held.
func (s *Series) Len() int { return s.samples.Len() }

// Samples returns a copy of the samples, oldest first.
func (s *Series) Samples() []Sample { return s.samples.Values() }

// MergeStats describes the outcome of one merge into a family.
type MergeStats struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Unknown int `json:"unknown"`
}

// Family is a group of series drawn on one chart and sharing one x-axis.
// All member series always hold the same number of samples.
type Family struct {
	Name  string
	Title string
	Unit  string
	// Order is the declaration position of the family in its catalog.
	Order int

	capacity  int
	keys      []string
	series    map[string]*Series
	live      int
	written   Tick
	started   bool
	evictions uint64
}

func newFamily(name, title, unit string, order, capacity int) *Family {
	return &Family{
		Name:     name,
		Title:    title,
		Unit:     unit,
		Order:    order,
		capacity: capacity,
		series:   make(map[string]*Series),
	}
}

// Keys returns the registered keys in discovery order.
func (f *Family) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the common length of every member series.
func (f *Family) Len() int {
	if len(f.keys) == 0 {
		return 0
	}
	return f.series[f.keys[0]].Len()
}

// Series returns the series registered under key.
func (f *Family) Series(key string) (*Series, bool) {
	s, ok := f.series[key]
	return s, ok
}

func (f *Family) register(key string, reference *float64, hueOf string) (Identity, error) {
	if f.started {
		return Identity{}, ErrFamilyStarted
	}
	if s, ok := f.series[key]; ok {
		return s.Identity, ErrDuplicateKey
	}

	id := Identity{Index: len(f.keys)}
	hue := id.Index
	alpha := referenceAlpha
	if reference == nil {
		hue, alpha = f.live, liveAlpha
		f.live++
	} else if base, ok := f.series[hueOf]; ok && !base.IsReference() {
		hue = base.hue
	}
	id.Color = colorFor(hue, alpha)

	f.series[key] = &Series{
		Key:       key,
		Identity:  id,
		reference: reference,
		hue:       hue,
		samples:   newWindow[Sample](f.capacity),
	}
	f.keys = append(f.keys, key)
	return id, nil
}

// push appends exactly one sample to every series for tick. Keys missing from
// values receive the absence marker; values for unregistered keys are dropped.
func (f *Family) push(tick Tick, values map[string]float64) MergeStats {
	var stats MergeStats
	for _, key := range f.keys {
		s := f.series[key]
		sample := Absent
		if s.reference != nil {
			sample = Value(*s.reference)
		} else if v, ok := values[key]; ok {
			sample = Value(v)
		}
		if sample.Valid {
			stats.Present++
		} else {
			stats.Absent++
		}
		if s.samples.Push(sample) {
			f.evictions++
		}
	}
	for key := range values {
		if _, ok := f.series[key]; !ok {
			stats.Unknown++
		}
	}
	f.written = tick
	f.started = true
	return stats
}

// mergedAt reports whether the family already holds a sample for tick.
func (f *Family) mergedAt(tick Tick) bool {
	return f.started && f.written >= tick
}

func (f *Family) snapshot() FamilySnapshot {
	snap := FamilySnapshot{
		Name:   f.Name,
		Title:  f.Title,
		Unit:   f.Unit,
		Order:  f.Order,
		Tick:   f.written,
		Series: make([]SeriesSnapshot, 0, len(f.keys)),
	}
	n := f.Len()
	if f.started && n > 0 && Tick(n) <= f.written+1 {
		first := f.written + 1 - Tick(n)
		snap.Labels = make([]Tick, n)
		for i := range snap.Labels {
			snap.Labels[i] = first + Tick(i)
		}
	}
	for _, key := range f.keys {
		s := f.series[key]
		snap.Series = append(snap.Series, SeriesSnapshot{
			Key:       key,
			Identity:  s.Identity,
			Reference: s.IsReference(),
			Samples:   s.Samples(),
		})
	}
	return snap
}
