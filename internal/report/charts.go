package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// WritePNG renders label counts as a grouped bar chart, one group per label
// and one bar per split.
func WritePNG(path string, summaries []Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no summaries to plot")
	}

	p := plot.New()
	p.Title.Text = "Maneuver labels per split"
	p.Y.Label.Text = "Observations"

	width := vg.Points(12)
	offset := -width * vg.Length(len(summaries)-1) / 2
	for i, s := range summaries {
		vals := make(plotter.Values, 0, len(LabelNames()))
		for _, n := range s.LabelCounts() {
			vals = append(vals, float64(n))
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return fmt.Errorf("failed to create bars for %s: %w", s.Split, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = offset + width*vg.Length(i)
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("%s (%d)", s.Split, s.Rows), bars)
	}
	p.Legend.Top = true
	p.NominalX(LabelNames()...)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WriteHTML renders the same chart as an interactive go-echarts page.
func WriteHTML(path, runID string, summaries []Summary) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "trajprep " + runID, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Maneuver labels per split", Subtitle: "run=" + runID}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(LabelNames())
	for _, s := range summaries {
		data := make([]opts.BarData, 0, len(LabelNames()))
		for _, n := range s.LabelCounts() {
			data = append(data, opts.BarData{Value: n})
		}
		bar.AddSeries(s.Split, data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	}

	page := components.NewPage()
	page.AddCharts(bar)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render error: %w", err)
	}
	return f.Close()
}
