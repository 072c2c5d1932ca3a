package epicurve

import (
	"math"
	"testing"
	"time"

	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/table"
)

func day(d int) time.Time {
	return time.Date(2021, time.July, d, 0, 0, 0, 0, time.UTC)
}

func onsetTable(t *testing.T, dates ...string) *table.Table {
	t.Helper()
	rows := make([][]string, len(dates))
	for i, d := range dates {
		rows[i] = []string{d}
	}
	tb, err := table.New([]string{flatten.ColFechaSintomas}, rows)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tb
}

func TestDailyReindexesGaps(t *testing.T) {
	// Day 5 has no records; the series must still contain it with count 0.
	tb := onsetTable(t,
		"2021-07-03", "2021-07-03", "2021-07-04",
		"2021-07-06", "2021-07-07",
	)
	s, err := Daily(tb, flatten.ColFechaSintomas, "onset")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}

	if len(s.Points) != 5 {
		t.Fatalf("expected 5 contiguous days, got %d", len(s.Points))
	}
	want := []Point{
		{day(3), 2}, {day(4), 1}, {day(5), 0}, {day(6), 1}, {day(7), 1},
	}
	for i, w := range want {
		if !s.Points[i].Date.Equal(w.Date) || s.Points[i].Count != w.Count {
			t.Fatalf("point %d = %v, want %v", i, s.Points[i], w)
		}
	}
	if s.Total() != 5 {
		t.Fatalf("total = %d", s.Total())
	}
}

func TestDailyIgnoresEmptyCells(t *testing.T) {
	tb := onsetTable(t, "2021-07-03", "", "2021-07-03")
	s, err := Daily(tb, flatten.ColFechaSintomas, "deaths")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(s.Points) != 1 || s.Points[0].Count != 2 {
		t.Fatalf("unexpected series %v", s.Points)
	}
}

func TestDailyEmptyInput(t *testing.T) {
	tb := onsetTable(t)
	s, err := Daily(tb, flatten.ColFechaSintomas, "onset")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(s.Points) != 0 {
		t.Fatalf("expected empty series, got %d points", len(s.Points))
	}
	if s.Total() != 0 {
		t.Fatalf("total = %d", s.Total())
	}
}

func TestRollingMeanWindowsSpanGaps(t *testing.T) {
	// One case per day on days 1..11 except day 5. The 7-day window ending
	// on day 11 covers days 5..11 and must include day 5's zero.
	var dates []string
	for d := 1; d <= 11; d++ {
		if d == 5 {
			continue
		}
		dates = append(dates, day(d).Format(flatten.DateLayout))
	}
	s, err := Daily(onsetTable(t, dates...), flatten.ColFechaSintomas, "onset")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}

	roll := s.RollingMean(7)
	if len(roll) != 11 {
		t.Fatalf("expected 11 rolling entries, got %d", len(roll))
	}
	for i := 0; i < 6; i++ {
		if roll[i].Valid {
			t.Fatalf("day %d: mean marked valid before a full window", i+1)
		}
	}
	last := roll[10]
	if !last.Valid {
		t.Fatal("day 11: mean must be valid")
	}
	if want := 6.0 / 7.0; math.Abs(last.Mean-want) > 1e-12 {
		t.Fatalf("day 11 mean = %v, want %v", last.Mean, want)
	}
}

func TestRollingMeanWindowOne(t *testing.T) {
	s := Series{Points: []Point{{day(1), 3}, {day(2), 5}}}
	roll := s.RollingMean(0) // clamps to 1
	for i, p := range s.Points {
		if !roll[i].Valid || roll[i].Mean != float64(p.Count) {
			t.Fatalf("entry %d = %+v", i, roll[i])
		}
	}
}

func TestMeltSkipsInvalidMeans(t *testing.T) {
	s := Series{Name: "confirmed", Points: []Point{
		{day(1), 2}, {day(2), 4},
	}}
	roll := []Rolling{
		{Date: day(1)},
		{Date: day(2), Mean: 3, Valid: true},
	}
	long := Melt(s, roll, "Confirmados")
	if len(long) != 3 {
		t.Fatalf("expected 3 long rows, got %d", len(long))
	}
	if long[0].Variable != VarCount || long[0].Value != 2 || long[0].Panel != "Confirmados" {
		t.Fatalf("row 0 = %+v", long[0])
	}
	if long[2].Variable != VarRollingMean || long[2].Value != 3 {
		t.Fatalf("row 2 = %+v", long[2])
	}
}

func TestCombinePanels(t *testing.T) {
	a := []LongRow{{Date: day(1), Variable: VarCount, Value: 1, Panel: "A"}}
	b := []LongRow{{Date: day(1), Variable: VarCount, Value: 2, Panel: "B"}}
	all := CombinePanels(a, b)
	if len(all) != 2 || all[0].Panel != "A" || all[1].Panel != "B" {
		t.Fatalf("combined = %+v", all)
	}
}
