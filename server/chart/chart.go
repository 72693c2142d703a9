// Package chart renders activity statistics as a PNG line chart.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	apperr "github.com/forestowl/notekeeper/internal/errors"
	"github.com/forestowl/notekeeper/store"
)

// Window is the number of trailing days a chart covers.
type Window int

const (
	WindowWeek  Window = 7
	WindowMonth Window = 30
)

// Render draws daily created/deleted/analysis counts over the trailing
// window ending at now. Days with no activity plot as zero.
func Render(counters *store.ActivityCounters, window Window, now time.Time) ([]byte, error) {
	days := int(window)
	if days <= 0 {
		days = int(WindowWeek)
	}

	xs := make([]time.Time, days)
	created := make([]float64, days)
	deleted := make([]float64, days)
	analyzed := make([]float64, days)

	maxCount := 0
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i-days+1)
		key := day.Format(store.DayKeyFormat)

		xs[i] = day
		created[i] = float64(counters.CreatedOn(key))
		deleted[i] = float64(counters.DeletedOn(key))
		analyzed[i] = float64(counters.AIAnalysisOn(key))

		for _, v := range []int{counters.CreatedOn(key), counters.DeletedOn(key), counters.AIAnalysisOn(key)} {
			if v > maxCount {
				maxCount = v
			}
		}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Активность за %d дней", days),
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(store.DayKeyFormat),
		},
		YAxis: chart.YAxis{
			// Explicit range keeps all-zero series renderable.
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount + 1)},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Создано",
				XValues: xs,
				YValues: created,
				Style:   chart.Style{StrokeColor: chart.ColorBlue},
			},
			chart.TimeSeries{
				Name:    "Удалено",
				XValues: xs,
				YValues: deleted,
				Style:   chart.Style{StrokeColor: chart.ColorRed},
			},
			chart.TimeSeries{
				Name:    "Анализов",
				XValues: xs,
				YValues: analyzed,
				Style:   chart.Style{StrokeColor: chart.ColorGreen},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeUpstreamFailure, "failed to render activity chart")
	}
	return buf.Bytes(), nil
}
