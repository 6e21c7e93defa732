// Package charts renders deck summary tables as interactive HTML reports.
package charts

import (
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/deckstats/internal/tablefile"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title      string   // Chart title
	Subtitle   string   // Chart subtitle
	YAxisLabel string   // Y-axis label
	XAxisLabel string   // X-axis label
	Width      string   // Chart width (e.g., "900px")
	Height     string   // Chart height (e.g., "500px")
	Theme      string   // Chart theme
	ShowLegend bool     // Show legend
	Colors     []string // Custom colors
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "900px",
		Height:     "500px",
		Theme:      "light",
		ShowLegend: true,
		Colors:     []string{"#5470C6", "#91CC75", "#FAC858", "#EE6666", "#73C0DE", "#3BA272", "#FC8452", "#9A60B4", "#EA7CCC"},
	}
}

// DataPoint represents a single data point in a chart.
type DataPoint struct {
	Label string
	Value float64
}

// Point is an (x, y) pair for scatter charts.
type Point struct {
	Name string
	X, Y float64
}

func globalOptions(config ChartConfig) []charts.GlobalOpts {
	colors := config.Colors
	if len(colors) == 0 {
		colors = DefaultChartConfig().Colors
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
		charts.WithColorsOpts(opts.Colors(colors)),
		charts.WithXAxisOpts(opts.XAxis{Name: config.XAxisLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: config.YAxisLabel}),
	}
}

// NewBarChart builds a single-series bar chart.
func NewBarChart(series string, data []DataPoint, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(config)...)

	xLabels := make([]string, len(data))
	yData := make([]opts.BarData, len(data))
	for i, point := range data {
		xLabels[i] = point.Label
		yData[i] = opts.BarData{Value: point.Value}
	}

	bar.SetXAxis(xLabels).
		AddSeries(series, yData).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)
	return bar
}

// NewScatterChart builds a single-series scatter chart on two value axes.
func NewScatterChart(series string, points []Point, config ChartConfig) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(globalOptions(config)...)
	scatter.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: config.XAxisLabel, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: config.YAxisLabel, Type: "value"}),
	)

	data := make([]opts.ScatterData, len(points))
	for i, p := range points {
		data[i] = opts.ScatterData{
			Name:       p.Name,
			Value:      []interface{}{p.X, p.Y},
			SymbolSize: 8,
		}
	}
	scatter.AddSeries(series, data)
	return scatter
}

// RenderBarChart writes a bar chart page to w.
func RenderBarChart(w io.Writer, series string, data []DataPoint, config ChartConfig) error {
	if err := NewBarChart(series, data, config).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderToFile atomically writes the output of render to path.
func RenderToFile(path string, render func(io.Writer) error) error {
	return tablefile.WriteAtomic(path, render)
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
