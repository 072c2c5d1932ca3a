package epicurve

import "time"

// Long-format variable names shared by every panel so series line up in
// multi-panel charts.
const (
	VarCount       = "Conteo"
	VarRollingMean = "Media Móvil"
)

// LongRow is one observation of the long-format day/variable/value table
// consumed by line and faceted-line chart renderers.
type LongRow struct {
	Date     time.Time
	Variable string
	Value    float64
	// Panel distinguishes case types (confirmed / deaths /
	// hospitalizations) when several series share one table.
	Panel string
}

// Melt reshapes a daily series and its trailing mean from wide columns into
// long rows. Mean rows are emitted only once a full window of history
// exists.
func Melt(s Series, rolling []Rolling, panel string) []LongRow {
	var out []LongRow
	for _, p := range s.Points {
		out = append(out, LongRow{Date: p.Date, Variable: VarCount, Value: float64(p.Count), Panel: panel})
	}
	for _, r := range rolling {
		if !r.Valid {
			continue
		}
		out = append(out, LongRow{Date: r.Date, Variable: VarRollingMean, Value: r.Mean, Panel: panel})
	}
	return out
}

// CombinePanels concatenates melted panels into one faceted table.
func CombinePanels(panels ...[]LongRow) []LongRow {
	var out []LongRow
	for _, p := range panels {
		out = append(out, p...)
	}
	return out
}
