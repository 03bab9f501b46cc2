package graphing

import (
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"ServingDashboard/pkg/series"
)

// gap is the value echarts draws as a break in a line.
const gap = "-"

// createLineChart draws one family: one line per series, the shared tick
// labels on the x-axis and absent samples as gaps.
func createLineChart(f series.FamilySnapshot) *charts.Line {
	line := charts.NewLine()

	title := f.Title
	if title == "" {
		title = f.Name
	}

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: f.Unit}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: f.Unit}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
	)

	line.SetXAxis(tickLabels(f.Labels))
	for _, s := range f.Series {
		style := opts.LineStyle{Color: s.Identity.Color, Width: 2}
		if s.Reference {
			style.Type = "dashed"
			style.Width = 1
		}
		line.AddSeries(s.Key, lineData(s.Samples),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(style),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Identity.Color}),
		)
	}
	return line
}

func tickLabels(labels []series.Tick) []string {
	out := make([]string, len(labels))
	for i, t := range labels {
		out[i] = strconv.FormatUint(uint64(t), 10)
	}
	return out
}

func lineData(samples []series.Sample) []opts.LineData {
	data := make([]opts.LineData, len(samples))
	for i, s := range samples {
		if s.Valid {
			data[i] = opts.LineData{Value: s.Value}
		} else {
			data[i] = opts.LineData{Value: gap}
		}
	}
	return data
}

// drawable reports whether a family has anything to plot.
func drawable(f series.FamilySnapshot) bool {
	return len(f.Series) > 0 && len(f.Labels) > 0
}
