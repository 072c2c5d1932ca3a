package epicurve

import (
	"sort"

	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/table"
)

// MunicipalCount is a per-municipality case total, keyed by the composite
// entity+municipality code so it joins cleanly against geometry layers.
type MunicipalCount struct {
	Key   string // composite municipality key
	Name  string // resolved municipality label
	Count int
	// Per100k is the population-adjusted rate, populated by RatePer100k.
	Per100k float64
}

// ByMunicipality groups a flattened table by composite municipality key and
// counts rows, sorted by key. Municipalities with no rows simply do not
// appear; map consumers zero-fill on join.
func ByMunicipality(t *table.Table) ([]MunicipalCount, error) {
	keys, err := t.Column(flatten.ColClaveMunicipioRes)
	if err != nil {
		return nil, err
	}
	names, err := t.Column(flatten.ColMunicipioRes)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]*MunicipalCount)
	for i, k := range keys {
		mc, ok := counts[k]
		if !ok {
			mc = &MunicipalCount{Key: k, Name: names[i]}
			counts[k] = mc
		}
		mc.Count++
	}

	out := make([]MunicipalCount, 0, len(counts))
	for _, mc := range counts {
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// LatestDay returns the rows admitted on the most recent admission date in
// the table, the "new cases" slice for the latest reporting day.
func LatestDay(t *table.Table) (*table.Table, error) {
	vals, err := t.Column(flatten.ColFechaIngreso)
	if err != nil {
		return nil, err
	}
	max := ""
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	latest := max
	return t.Filter(func(r table.Row) bool { return r.Get(flatten.ColFechaIngreso) == latest }), nil
}

// RatePer100k fills in population-adjusted rates using a composite-key →
// population map. Municipalities without a known population keep Per100k 0.
func RatePer100k(counts []MunicipalCount, population map[string]int) []MunicipalCount {
	out := make([]MunicipalCount, len(counts))
	copy(out, counts)
	for i := range out {
		if pop := population[out[i].Key]; pop > 0 {
			out[i].Per100k = float64(out[i].Count) / float64(pop) * 100000
		}
	}
	return out
}
