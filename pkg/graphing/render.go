package graphing

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"

	"ServingDashboard/pkg/series"
)

// PageInfo describes the header and behaviour of a rendered chart page.
type PageInfo struct {
	Title      string
	Session    string
	Tick       series.Tick
	MaxSamples int
	Period     time.Duration
	Rendered   time.Time

	// Live pages reload when EventsURL reports a new tick, or every
	// RefreshMillis where server-sent events are unavailable.
	Live          bool
	EventsURL     string
	RefreshMillis int64
}

// RenderHTML writes one go-echarts page with a line chart per family.
// Families without series are skipped.
func RenderHTML(w io.Writer, info PageInfo, families []series.FamilySnapshot) error {
	if info.Rendered.IsZero() {
		info.Rendered = time.Now()
	}
	if info.RefreshMillis <= 0 {
		info.RefreshMillis = 2000
	}

	page := components.NewPage()
	page.PageTitle = info.Title
	for _, f := range families {
		if !drawable(f) {
			continue
		}
		page.AddCharts(createLineChart(f))
	}

	var buf strings.Builder
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}

	head, err := renderFragments(info, "styles", "scripts")
	if err != nil {
		return err
	}
	header, err := renderFragments(info, "header")
	if err != nil {
		return err
	}

	html := buf.String()
	html = strings.Replace(html, "</head>", head+"</head>", 1)
	html = strings.Replace(html, "<body>", "<body>\n"+header, 1)

	_, err = io.WriteString(w, html)
	return err
}

func renderFragments(info PageInfo, names ...string) (string, error) {
	var buf bytes.Buffer
	for _, name := range names {
		if err := templates.ExecuteTemplate(&buf, name, info); err != nil {
			return "", fmt.Errorf("failed to execute %s template: %w", name, err)
		}
	}
	return buf.String(), nil
}
