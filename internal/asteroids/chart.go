package asteroids

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"nasa-explorer/internal/domain"
)

// ChartLimit is the number of closest approaches drawn
const ChartLimit = 10

// ErrNoData is returned when there is nothing to chart
var ErrNoData = errors.New("no asteroids to chart")

var (
	hazardColor = drawing.ColorFromHex("ef4444")
	safeColor   = drawing.ColorFromHex("22c55e")
)

// RenderDistanceChart writes an SVG bar chart of the closest approaches in list,
// which must already be sorted closest first. Hazardous objects are drawn red.
func RenderDistanceChart(w io.Writer, window Window, list []domain.NearEarthObject) error {
	if len(list) == 0 {
		return ErrNoData
	}
	if len(list) > ChartLimit {
		list = list[:ChartLimit]
	}

	bars := make([]chart.Value, 0, len(list))
	top := 0.0
	for _, neo := range list {
		millions := neo.DistanceKm / 1e6
		top = max(top, millions)

		color := safeColor
		if neo.IsPotentiallyHazardous {
			color = hazardColor
		}
		bars = append(bars, chart.Value{
			Value: millions,
			Label: shortName(neo.Name),
			Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
		})
	}
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title: fmt.Sprintf("Closest approaches %s to %s", window.StartDate(), window.EndDate()),
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Height:   400,
		Width:    900,
		BarWidth: 60,
		Bars:     bars,
		XAxis: chart.Style{
			FontSize: 8,
		},
		YAxis: chart.YAxis{
			Name: "Miss distance (million km)",
			Style: chart.Style{
				FontSize: 9,
			},
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
	}

	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("failed to render distance chart: %w", err)
	}
	return nil
}

func shortName(name string) string {
	return strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(name))
}
