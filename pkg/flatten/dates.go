package flatten

import (
	"strconv"
	"strings"
	"time"

	"github.com/jdfalcon/covidmx/pkg/table"
)

// DeriveDates parses the admission, symptom-onset and death dates, derives
// the death flag and the admission-based calendar fields, and validates the
// age column. Every calendar field is a deterministic function of the
// admission date alone, keeping the derived fields consistent with
// admission-based reporting.
func DeriveDates(t *table.Table) (*table.Table, error) {
	n := t.NumRows()

	ingreso, err := parseDateColumn(t, ColFechaIngreso)
	if err != nil {
		return nil, err
	}
	if _, err := parseDateColumn(t, ColFechaSintomas); err != nil {
		return nil, err
	}

	// Death dates use an explicit "not applicable" sentinel; the sentinel
	// (and anything unparseable) means not deceased, never an error.
	defDates, err := t.Column(ColFechaDef)
	if err != nil {
		return nil, err
	}
	defuncion := make([]string, n)
	normDef := make([]string, n)
	for i, v := range defDates {
		v = strings.TrimSpace(v)
		if v == "" || v == DeathSentinel {
			defuncion[i] = "0"
			normDef[i] = ""
			continue
		}
		d, perr := time.Parse(DateLayout, v)
		if perr != nil {
			defuncion[i] = "0"
			normDef[i] = ""
			continue
		}
		defuncion[i] = "1"
		normDef[i] = d.Format(DateLayout)
	}
	if t, err = t.SetColumn(ColFechaDef, normDef); err != nil {
		return nil, err
	}
	if t, err = t.SetColumn(ColDefuncion, defuncion); err != nil {
		return nil, err
	}

	// Ages must be non-negative integers. A bad value is a data-quality
	// error that fails the extraction rather than being coerced away.
	ages, err := t.Column(ColEdad)
	if err != nil {
		return nil, err
	}
	for i, v := range ages {
		a, aerr := strconv.Atoi(strings.TrimSpace(v))
		if aerr != nil {
			return nil, &ValidationError{Row: i, Column: ColEdad, Value: v, Reason: "age is not numeric"}
		}
		if a < 0 {
			return nil, &ValidationError{Row: i, Column: ColEdad, Value: v, Reason: "age is negative"}
		}
		ages[i] = strconv.Itoa(a)
	}
	if t, err = t.SetColumn(ColEdad, ages); err != nil {
		return nil, err
	}

	year := make([]string, n)
	month := make([]string, n)
	weekday := make([]string, n)
	week := make([]string, n)
	dayOfMonth := make([]string, n)
	dayOfYear := make([]string, n)
	for i, d := range ingreso {
		year[i] = strconv.Itoa(d.Year())
		month[i] = strconv.Itoa(int(d.Month()))
		// Monday = 0 convention.
		weekday[i] = strconv.Itoa((int(d.Weekday()) + 6) % 7)
		_, wk := d.ISOWeek()
		week[i] = strconv.Itoa(wk)
		dayOfMonth[i] = strconv.Itoa(d.Day())
		dayOfYear[i] = strconv.Itoa(d.YearDay())
	}

	for _, c := range []struct {
		name string
		vals []string
	}{
		{ColAnioIngreso, year},
		{ColMesIngreso, month},
		{ColDiaSemanaIngreso, weekday},
		{ColSemanaAnioIngreso, week},
		{ColDiaMesIngreso, dayOfMonth},
		{ColDiaAnioIngreso, dayOfYear},
	} {
		if t, err = t.SetColumn(c.name, c.vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// parseDateColumn parses a mandatory calendar-date column.
func parseDateColumn(t *table.Table, col string) ([]time.Time, error) {
	vals, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(vals))
	for i, v := range vals {
		d, perr := time.Parse(DateLayout, strings.TrimSpace(v))
		if perr != nil {
			return nil, &ValidationError{Row: i, Column: col, Value: v, Reason: "unparseable date"}
		}
		out[i] = d
	}
	return out, nil
}

// ParseDay parses a canonical YYYY-MM-DD cell, reporting ok=false for empty
// cells.
func ParseDay(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
