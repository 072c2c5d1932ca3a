// Package epicurve derives time-aggregated epidemic curves and municipal
// totals from a flattened case table. Aggregation never fails on empty
// input: an empty selection yields an empty or zero-filled series.
package epicurve

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/table"
)

// Point is one calendar day's count.
type Point struct {
	Date  time.Time
	Count int
}

// Series is a daily count series over a contiguous calendar range.
type Series struct {
	Name   string
	Points []Point
}

// Daily counts rows per calendar day of dateCol and reindexes the result to
// a contiguous daily range from the earliest to the latest day present.
// Days without records appear with count 0, required for rolling-window
// math to see real calendar gaps rather than skipping them. Rows with an
// empty date cell (e.g. no death date) are ignored.
func Daily(t *table.Table, dateCol, name string) (Series, error) {
	vals, err := t.Column(dateCol)
	if err != nil {
		return Series{}, err
	}

	counts := make(map[time.Time]int)
	var min, max time.Time
	for _, v := range vals {
		d, ok := flatten.ParseDay(v)
		if !ok {
			continue
		}
		counts[d]++
		if min.IsZero() || d.Before(min) {
			min = d
		}
		if max.IsZero() || d.After(max) {
			max = d
		}
	}
	if len(counts) == 0 {
		return Series{Name: name}, nil
	}

	var pts []Point
	for d := min; !d.After(max); d = d.AddDate(0, 0, 1) {
		pts = append(pts, Point{Date: d, Count: counts[d]})
	}
	return Series{Name: name, Points: pts}, nil
}

// Rolling is one day of a trailing-mean series.
type Rolling struct {
	Date time.Time
	Mean float64
	// Valid is false for the first window-1 days, where no trailing mean
	// exists yet. Those days are not zero and not rendered as zero.
	Valid bool
}

// RollingMean computes the trailing mean over the given window. The series
// is already contiguous, so every window covers exactly `window` calendar
// days including any zero-count days.
func (s Series) RollingMean(window int) []Rolling {
	if window <= 0 {
		window = 1
	}
	vals := make([]float64, len(s.Points))
	for i, p := range s.Points {
		vals[i] = float64(p.Count)
	}
	out := make([]Rolling, len(s.Points))
	for i, p := range s.Points {
		out[i].Date = p.Date
		if i+1 < window {
			continue
		}
		out[i].Mean = floats.Sum(vals[i+1-window:i+1]) / float64(window)
		out[i].Valid = true
	}
	return out
}

// Total returns the sum of all counts in the series.
func (s Series) Total() int {
	n := 0
	for _, p := range s.Points {
		n += p.Count
	}
	return n
}
