// Package polling drives the per-source fetches and merges their results into
// the tick-aligned series catalog.
package polling

import (
	"context"
	"time"
)

// Values maps family name to series key to value.
type Values map[string]map[string]float64

// Set stores value under family and key.
func (v Values) Set(family, key string, value float64) {
	m, ok := v[family]
	if !ok {
		m = make(map[string]float64)
		v[family] = m
	}
	m[key] = value
}

// FamilySpec declares a chart family owned by a source.
type FamilySpec struct {
	Name  string
	Title string
	Unit  string
}

// Reference is a constant-valued key, drawn with the colour of HueOf.
type Reference struct {
	Key   string
	Value float64
	HueOf string
}

// Discovery is the outcome of a source's one-shot startup fetch.
type Discovery struct {
	// Keys lists live keys per family in discovery order.
	Keys map[string][]string
	// References lists constant keys per family.
	References map[string][]Reference
	// Seed holds values for tick 0.
	Seed Values
}

// NewDiscovery returns an empty discovery.
func NewDiscovery() *Discovery {
	return &Discovery{
		Keys:       make(map[string][]string),
		References: make(map[string][]Reference),
		Seed:       make(Values),
	}
}

// AddKey appends a live key unless it is already listed.
func (d *Discovery) AddKey(family, key string) {
	for _, k := range d.Keys[family] {
		if k == key {
			return
		}
	}
	d.Keys[family] = append(d.Keys[family], key)
}

// Source is one polled data source. Discover runs once before polling starts;
// Sample runs on every due tick. Neither touches the catalog.
type Source interface {
	Name() string
	// Families lists the families whose samples this source produces. A
	// source that only contributes reference keys returns nil.
	Families() []FamilySpec
	Discover(ctx context.Context, now time.Time) (*Discovery, error)
	Sample(ctx context.Context, now time.Time) (Values, error)
}
