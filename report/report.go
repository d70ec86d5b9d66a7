// Package report renders search traces as standalone HTML charts.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/thalesfsp/hillclimb"
)

// ErrEmptyTrace is returned when there is nothing to plot.
var ErrEmptyTrace = errors.New("trace has no steps")

// Options tweak the rendered page.
type Options struct {
	// Title defaults to "Hill climb".
	Title string

	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

// RenderTrace writes a line chart of the best metric value per iteration,
// with the evaluated and cached point counts as bars.
func RenderTrace(w io.Writer, steps []hillclimb.TraceStep, metric string, o Options) error {
	if len(steps) == 0 {
		return ErrEmptyTrace
	}

	title := o.Title
	if title == "" {
		title = "Hill climb"
	}

	x := make([]string, 0, len(steps))
	best := make([]opts.LineData, 0, len(steps))
	evaluated := make([]opts.BarData, 0, len(steps))
	cached := make([]opts.BarData, 0, len(steps))

	for _, s := range steps {
		x = append(x, strconv.Itoa(s.Iteration))
		best = append(best, opts.LineData{Value: s.Value, Name: s.Best.Point().String()})
		evaluated = append(evaluated, opts.BarData{Value: s.Evaluated})
		cached = append(cached, opts.BarData{Value: s.Cached})
	}

	last := steps[len(steps)-1]

	init := opts.Initialization{PageTitle: title, Width: "900px", Height: "500px"}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("metric=%s best=%s value=%g", metric, last.Best.Point(), last.Value)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: metric, Scale: opts.Bool(true)}),
	)

	line.ExtendYAxis(opts.YAxis{Name: "points", Position: "right"})

	line.SetXAxis(x).
		AddSeries("best "+metric, best,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	bar := charts.NewBar()
	bar.SetXAxis(x).
		AddSeries("evaluated", evaluated, charts.WithBarChartOpts(opts.BarChart{YAxisIndex: 1, Stack: "points"})).
		AddSeries("cached", cached, charts.WithBarChartOpts(opts.BarChart{YAxisIndex: 1, Stack: "points"}))

	line.Overlap(bar)

	return line.Render(w)
}

// RenderResult is RenderTrace over the trace of a finished search.
func RenderResult(w io.Writer, result *hillclimb.Result, metric string, o Options) error {
	if result == nil {
		return ErrEmptyTrace
	}

	if o.Title == "" && result.RunID != "" {
		o.Title = "Hill climb " + result.RunID
	}

	return RenderTrace(w, result.Trace, metric, o)
}
