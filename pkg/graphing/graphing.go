// Package graphing renders family snapshots as go-echarts HTML pages and
// gonum PNG images.
package graphing

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ServingDashboard/pkg/exporting"
	"ServingDashboard/pkg/series"
)

const (
	defaultWidth  = 12 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

// Output formats.
const (
	FormatHTML = "html"
	FormatPNG  = "png"
)

// ErrNoSamples is returned when a recording holds nothing to draw.
var ErrNoSamples = errors.New("no samples to graph")

// Generator renders a recorded session.
type Generator struct {
	inputPath string
	output    string
	format    string
	log       *zap.Logger
}

// NewGenerator creates a generator. For html output is the page path, for
// png it is a directory.
func NewGenerator(inputPath, output, format string, log *zap.Logger) (*Generator, error) {
	if inputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if format != FormatHTML && format != FormatPNG {
		return nil, fmt.Errorf("unsupported graph format: %s", format)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{inputPath: inputPath, output: output, format: format, log: log}, nil
}

// Generate renders the recording and returns the files written.
func (g *Generator) Generate() ([]string, error) {
	families, err := exporting.LoadRecording(g.inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording: %w", err)
	}

	var drawn []series.FamilySnapshot
	var last series.Tick
	for _, f := range families {
		if drawable(f) {
			drawn = append(drawn, f)
			if f.Tick > last {
				last = f.Tick
			}
		}
	}
	if len(drawn) == 0 {
		return nil, fmt.Errorf("%s: %w", g.inputPath, ErrNoSamples)
	}

	var files []string
	switch g.format {
	case FormatPNG:
		files, err = RenderPNG(g.output, drawn, g.log)
	default:
		err = g.renderPage(drawn, last)
		files = []string{g.output}
	}
	if err != nil {
		return nil, err
	}

	g.log.Info("generated graphs",
		zap.String("input", g.inputPath),
		zap.String("format", g.format),
		zap.Int("families", len(drawn)),
		zap.Strings("files", files))
	return files, nil
}

func (g *Generator) renderPage(families []series.FamilySnapshot, last series.Tick) error {
	if err := os.MkdirAll(filepath.Dir(g.output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(g.output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	info := PageInfo{
		Title: "Serving dashboard - " + filepath.Base(g.inputPath),
		Tick:  last,
	}
	for _, fam := range families {
		if n := len(fam.Labels); n > info.MaxSamples {
			info.MaxSamples = n
		}
	}
	if err := RenderHTML(f, info, families); err != nil {
		return err
	}
	return f.Close()
}

// RenderPNG writes one PNG per family into dir and returns their paths.
// Families that fail to render are logged and skipped.
func RenderPNG(dir string, families []series.FamilySnapshot, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	for _, f := range families {
		if !drawable(f) {
			continue
		}
		path := filepath.Join(dir, sanitizeFilename(f.Name)+".png")
		if err := renderFamilyPNG(f, path); err != nil {
			log.Warn("failed to render family", zap.String("family", f.Name), zap.Error(err))
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

func renderFamilyPNG(f series.FamilySnapshot, path string) error {
	p := plot.New()
	p.Title.Text = f.Title
	if p.Title.Text == "" {
		p.Title.Text = f.Name
	}
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = f.Unit
	p.Legend.Top = true

	for _, s := range f.Series {
		c := parseColor(s.Identity.Color)
		var first plot.Thumbnailer
		for _, run := range segments(f.Labels, s.Samples) {
			if len(run) == 1 {
				sc, err := plotter.NewScatter(run)
				if err != nil {
					return err
				}
				sc.GlyphStyle.Color = c
				sc.GlyphStyle.Radius = vg.Points(2)
				p.Add(sc)
				if first == nil {
					first = sc
				}
				continue
			}
			line, err := plotter.NewLine(run)
			if err != nil {
				return err
			}
			line.Color = c
			line.Width = vg.Points(1.5)
			if s.Reference {
				line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			}
			p.Add(line)
			if first == nil {
				first = line
			}
		}
		if first != nil {
			p.Legend.Add(s.Key, first)
		}
	}
	p.Add(plotter.NewGrid())

	return p.Save(defaultWidth, defaultHeight, path)
}

// segments splits a series into runs of consecutive present samples so
// absence is drawn as a gap.
func segments(labels []series.Tick, samples []series.Sample) []plotter.XYs {
	var runs []plotter.XYs
	var cur plotter.XYs
	for i, s := range samples {
		if i >= len(labels) {
			break
		}
		if !s.Valid {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(labels[i]), Y: s.Value})
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// parseColor reads the "rgba(r, g, b, a)" form used for series identities.
func parseColor(s string) color.Color {
	var r, g, b uint8
	var a float64
	if _, err := fmt.Sscanf(s, "rgba(%d, %d, %d, %g)", &r, &g, &b, &a); err != nil {
		return color.Black
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a * 255)}
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
