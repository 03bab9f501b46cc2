package series

// SeriesSnapshot is an immutable copy of one series.
type SeriesSnapshot struct {
	Key       string   `json:"key"`
	Identity  Identity `json:"identity"`
	Reference bool     `json:"reference"`
	Samples   []Sample `json:"samples"`
}

// FamilySnapshot is an immutable copy of one family. Labels holds the tick of
// each sample position and has the same length as every Samples slice.
type FamilySnapshot struct {
	Name   string           `json:"name"`
	Title  string           `json:"title"`
	Unit   string           `json:"unit"`
	Order  int              `json:"order"`
	Tick   Tick             `json:"tick"`
	Labels []Tick           `json:"labels"`
	Series []SeriesSnapshot `json:"series"`
}

// Lookup returns the series snapshot for key.
func (f FamilySnapshot) Lookup(key string) (SeriesSnapshot, bool) {
	for _, s := range f.Series {
		if s.Key == key {
			return s, true
		}
	}
	return SeriesSnapshot{}, false
}

// Latest returns the newest sample of every series keyed by series key.
func (f FamilySnapshot) Latest() map[string]Sample {
	out := make(map[string]Sample, len(f.Series))
	for _, s := range f.Series {
		if n := len(s.Samples); n > 0 {
			out[s.Key] = s.Samples[n-1]
		} else {
			out[s.Key] = Absent
		}
	}
	return out
}

// Snapshot is an immutable copy of the whole catalog. Labels is the clock
// window and always ends with the open tick Tick, which families may not hold
// yet; it can be one longer than a family's samples until that family is
// merged or sealed. Use FamilySnapshot.Labels to index samples.
type Snapshot struct {
	Tick       Tick             `json:"tick"`
	MaxSamples int              `json:"max_samples"`
	Labels     []Tick           `json:"labels"`
	Families   []FamilySnapshot `json:"families"`
}

// Family returns the named family snapshot.
func (s Snapshot) Family(name string) (FamilySnapshot, bool) {
	for _, f := range s.Families {
		if f.Name == name {
			return f, true
		}
	}
	return FamilySnapshot{}, false
}

// CatalogStats summarises the catalog.
type CatalogStats struct {
	Tick       Tick   `json:"tick"`
	MaxSamples int    `json:"max_samples"`
	Frozen     bool   `json:"frozen"`
	Families   int    `json:"families"`
	Series     int    `json:"series"`
	Samples    int    `json:"samples"`
	Evictions  uint64 `json:"evictions"`
}
