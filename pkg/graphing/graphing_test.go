package graphing

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ServingDashboard/pkg/exporting"
	"ServingDashboard/pkg/series"
)

func testFamilies() []series.FamilySnapshot {
	return []series.FamilySnapshot{{
		Name:   "rt",
		Title:  "Response time",
		Unit:   "s",
		Tick:   4,
		Labels: []series.Tick{0, 1, 2, 3, 4},
		Series: []series.SeriesSnapshot{{
			Key:      "resnet",
			Identity: series.Identity{Index: 0, Color: "rgba(255, 0, 0, 0.5)"},
			Samples:  []series.Sample{series.Value(0.1), series.Value(0.2), series.Absent, series.Value(0.3), series.Value(0.1)},
		}, {
			Key:       "resnet_SLA",
			Identity:  series.Identity{Index: 1, Color: "rgba(255, 0, 0, 1)"},
			Reference: true,
			Samples:   []series.Sample{series.Value(0.5), series.Value(0.5), series.Value(0.5), series.Value(0.5), series.Value(0.5)},
		}},
	}, {
		Name: "quota",
	}}
}

func TestSegments(t *testing.T) {
	f := testFamilies()[0]
	runs := segments(f.Labels, f.Series[0].Samples)
	require.Len(t, runs, 2)
	assert.Len(t, runs[0], 2)
	assert.Len(t, runs[1], 2)
	assert.Equal(t, 3.0, runs[1][0].X)
	assert.Equal(t, 0.3, runs[1][0].Y)

	assert.Empty(t, segments(f.Labels, []series.Sample{series.Absent}))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, A: 127}, parseColor("rgba(255, 0, 0, 0.5)"))
	assert.Equal(t, color.NRGBA{R: 11, G: 212, A: 255}, parseColor("rgba(11, 212, 0, 1)"))
	assert.Equal(t, color.Black, parseColor("teal"))
}

func TestRenderHTML(t *testing.T) {
	var buf strings.Builder
	info := PageInfo{
		Title:      "Serving dashboard",
		Session:    "abc-123",
		Tick:       4,
		MaxSamples: 50,
		Period:     2 * time.Second,
		Live:       true,
		EventsURL:  "/api/events",
	}
	require.NoError(t, RenderHTML(&buf, info, testFamilies()))

	html := buf.String()
	assert.Contains(t, html, "Response time")
	assert.Contains(t, html, "resnet_SLA")
	assert.Contains(t, html, "rgba(255, 0, 0, 0.5)")
	assert.Contains(t, html, `"-"`)
	assert.Contains(t, html, "dashed")
	assert.Contains(t, html, "Session: abc-123")
	assert.Contains(t, html, "EventSource")
	assert.NotContains(t, html, "Core quota")
}

func TestRenderHTMLStatic(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, RenderHTML(&buf, PageInfo{Title: "x"}, nil))
	assert.NotContains(t, buf.String(), "EventSource")
}

func TestRenderPNG(t *testing.T) {
	dir := t.TempDir()
	files, err := RenderPNG(dir, testFamilies(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "rt.png")}, files)

	info, err := os.Stat(files[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func writeRecording(t *testing.T, dir string) string {
	t.Helper()
	var records []exporting.Record
	for _, f := range testFamilies() {
		for _, s := range f.Series {
			for i, sample := range s.Samples {
				records = append(records, exporting.Record{
					"session":      "abc",
					"tick":         int64(f.Labels[i]),
					"ts":           int64(1000 * i),
					"family":       f.Name,
					"family_order": int64(f.Order),
					"title":        f.Title,
					"unit":         f.Unit,
					"key":          s.Key,
					"color":        s.Identity.Color,
					"reference":    s.Reference,
					"value":        sample.Interface(),
				})
			}
		}
	}
	path := filepath.Join(dir, "session.csv")
	require.NoError(t, exporting.SaveRecords(path, records, exporting.RecordSchema))
	return path
}

func TestGenerator(t *testing.T) {
	dir := t.TempDir()
	input := writeRecording(t, dir)

	out := filepath.Join(dir, "out", "graphs.html")
	g, err := NewGenerator(input, out, FormatHTML, nil)
	require.NoError(t, err)
	files, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{out}, files)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), "session.csv")
	assert.Contains(t, string(body), "resnet_SLA")

	g, err = NewGenerator(input, filepath.Join(dir, "png"), FormatPNG, nil)
	require.NoError(t, err)
	files, err = g.Generate()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestGeneratorErrors(t *testing.T) {
	_, err := NewGenerator("", "out", FormatHTML, nil)
	assert.Error(t, err)
	_, err = NewGenerator("in.csv", "out", "svg", nil)
	assert.Error(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	g, err := NewGenerator(empty, filepath.Join(dir, "x.html"), FormatHTML, nil)
	require.NoError(t, err)
	_, err = g.Generate()
	assert.True(t, errors.Is(err, ErrNoSamples))
}
