package exporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ServingDashboard/pkg/polling"
	"ServingDashboard/pkg/series"
	"ServingDashboard/pkg/utils"
)

// RecordSchema is the long-format layout of a recording: one row per series
// per family per tick. Absent samples have a null value. family_order keeps
// the catalog's family order, which row order does not.
var RecordSchema = &Schema{Columns: []Column{
	{Name: "session", Type: TypeString},
	{Name: "tick", Type: TypeInt64},
	{Name: "ts", Type: TypeInt64},
	{Name: "family", Type: TypeString},
	{Name: "family_order", Type: TypeInt64},
	{Name: "title", Type: TypeString, Nullable: true},
	{Name: "unit", Type: TypeString, Nullable: true},
	{Name: "key", Type: TypeString},
	{Name: "color", Type: TypeString, Nullable: true},
	{Name: "reference", Type: TypeBool},
	{Name: "value", Type: TypeFloat64, Nullable: true},
}}

// Recorder is a sink that appends the newest sample of every series to a
// file each time a family is merged or sealed.
type Recorder struct {
	session string
	writer  Writer
	log     *zap.Logger

	mu   sync.Mutex
	rows int
	err  error
}

// NewRecorder opens path in the named format.
func NewRecorder(path, format, session string, log *zap.Logger) (*Recorder, error) {
	f, ok := Get(format)
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	w := f.Writer()
	if err := w.Init(path, RecordSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize writer: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{session: session, writer: w, log: log}, nil
}

// Rows returns the number of rows written so far.
func (r *Recorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Path returns the output path.
func (r *Recorder) Path() string { return r.writer.Path() }

// Publish implements polling.Sink. Write errors are logged once and the
// recorder stops writing.
func (r *Recorder) Publish(u polling.Update) {
	records := FamilyRecords(r.session, u.At, u.Family)
	if len(records) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.writer.WriteBatch(records); err != nil {
		r.err = err
		r.log.Error("recording failed", zap.String("path", r.writer.Path()), zap.Error(err))
		return
	}
	r.rows += len(records)
}

// Close flushes and closes the output.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writer.Close(); err != nil {
		return err
	}
	return r.err
}

// FamilyRecords converts the newest sample of each series into rows.
func FamilyRecords(session string, at time.Time, fam series.FamilySnapshot) []Record {
	records := make([]Record, 0, len(fam.Series))
	for _, s := range fam.Series {
		if len(s.Samples) == 0 {
			continue
		}
		last := s.Samples[len(s.Samples)-1]
		records = append(records, Record{
			"session":      session,
			"tick":         int64(fam.Tick),
			"ts":           at.UnixMilli(),
			"family":       fam.Name,
			"family_order": int64(fam.Order),
			"title":        fam.Title,
			"unit":         fam.Unit,
			"key":          s.Key,
			"color":        s.Identity.Color,
			"reference":    s.Reference,
			"value":        last.Interface(),
		})
	}
	return records
}

// LoadRecording reads a recording back into family snapshots, one per family
// in catalog order. Ticks with no row for a key become absent
// samples so every series stays aligned with the family labels.
func LoadRecording(path string) ([]series.FamilySnapshot, error) {
	records, err := LoadRecords(path)
	if err != nil {
		return nil, err
	}
	return Rebuild(records)
}

// Rebuild groups long-format rows into family snapshots. Families are
// ordered by family_order; rows without it keep their order of first
// appearance after the ordered ones.
func Rebuild(records []Record) ([]series.FamilySnapshot, error) {
	type seriesAcc struct {
		snap   series.SeriesSnapshot
		values map[series.Tick]series.Sample
	}
	type familyAcc struct {
		snap   series.FamilySnapshot
		ranked bool
		ticks  map[series.Tick]struct{}
		keys   []string
		series map[string]*seriesAcc
	}

	var order []string
	families := map[string]*familyAcc{}
	for i, rec := range records {
		name := utils.ToString(rec["family"])
		key := utils.ToString(rec["key"])
		tick, ok := utils.ToInt64Ok(rec["tick"])
		if name == "" || key == "" || !ok || tick < 0 {
			return nil, fmt.Errorf("record %d: missing family, key or tick", i)
		}

		fa, ok := families[name]
		if !ok {
			fa = &familyAcc{
				snap: series.FamilySnapshot{
					Name:  name,
					Title: utils.ToString(rec["title"]),
					Unit:  utils.ToString(rec["unit"]),
				},
				ticks:  map[series.Tick]struct{}{},
				series: map[string]*seriesAcc{},
			}
			if n, ok := utils.ToInt64Ok(rec["family_order"]); ok {
				fa.snap.Order = int(n)
				fa.ranked = true
			}
			families[name] = fa
			order = append(order, name)
		}
		t := series.Tick(tick)
		fa.ticks[t] = struct{}{}

		sa, ok := fa.series[key]
		if !ok {
			ref, _ := rec["reference"].(bool)
			if n, isInt := utils.ToInt64Ok(rec["reference"]); isInt {
				ref = n != 0
			}
			sa = &seriesAcc{
				snap: series.SeriesSnapshot{
					Key:       key,
					Identity:  series.Identity{Index: len(fa.keys), Color: utils.ToString(rec["color"])},
					Reference: ref,
				},
				values: map[series.Tick]series.Sample{},
			}
			fa.series[key] = sa
			fa.keys = append(fa.keys, key)
		}
		if v, ok := utils.ToFloat64Ok(rec["value"]); ok {
			sa.values[t] = series.Value(v)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := families[order[i]], families[order[j]]
		if a.ranked != b.ranked {
			return a.ranked
		}
		return a.ranked && a.snap.Order < b.snap.Order
	})

	out := make([]series.FamilySnapshot, 0, len(order))
	for _, name := range order {
		fa := families[name]
		labels := make([]series.Tick, 0, len(fa.ticks))
		for t := range fa.ticks {
			labels = append(labels, t)
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

		fa.snap.Labels = labels
		if len(labels) > 0 {
			fa.snap.Tick = labels[len(labels)-1]
		}
		for _, key := range fa.keys {
			sa := fa.series[key]
			sa.snap.Samples = make([]series.Sample, len(labels))
			for i, t := range labels {
				sa.snap.Samples[i] = sa.values[t]
			}
			fa.snap.Series = append(fa.snap.Series, sa.snap)
		}
		out = append(out, fa.snap)
	}
	return out, nil
}
