package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// LoadWorkbook parses the dictionary workbook at path into one Catalog per
// sheet named in names. A missing sheet is a SchemaError; a sheet whose
// layout cannot be understood is a FormatError. The read has no side
// effects and the returned Set is never mutated afterwards.
func LoadWorkbook(path string, names SheetNames) (*Set, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook %s: %w", path, err)
	}
	defer f.Close()

	set := &Set{}

	set.Entities, err = loadKeyed(f, names.Entities, "CLAVE_ENTIDAD", "ENTIDAD_FEDERATIVA", "")
	if err != nil {
		return nil, err
	}
	set.Municipalities, err = loadMunicipalities(f, names.Municipalities)
	if err != nil {
		return nil, err
	}
	set.YesNo, err = loadKeyed(f, names.YesNo, "CLAVE", "DESCRIPCIÓN", "")
	if err != nil {
		return nil, err
	}
	set.PatientType, err = loadKeyed(f, names.PatientType, "CLAVE", "DESCRIPCIÓN", "")
	if err != nil {
		return nil, err
	}

	// The lab-result and final-classification sheets ship with corrupted
	// header rows, so their column layout is assigned here instead of being
	// read from the file.
	set.Result, err = loadPositional(f, names.Result, 2, func(row []string) (string, Entry) {
		return row[0], Entry{Label: row[1]}
	})
	if err != nil {
		return nil, err
	}
	set.Classification, err = loadPositional(f, names.Classification, 3, func(row []string) (string, Entry) {
		return row[0], Entry{Label: row[2], Category: row[1]}
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, &SchemaError{Sheet: sheet}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	for _, r := range rows {
		for i := range r {
			r[i] = strings.TrimSpace(r[i])
		}
	}
	return rows, nil
}

// loadKeyed parses a sheet with a trustworthy header row, keyed by keyCol.
func loadKeyed(f *excelize.File, sheet, keyCol, labelCol, categoryCol string) (*Catalog, error) {
	rows, err := sheetRows(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &FormatError{Sheet: sheet, Detail: "sheet is empty"}
	}

	pos := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		pos[name] = i
	}
	ki, ok := pos[keyCol]
	if !ok {
		return nil, &SchemaError{Sheet: sheet, Missing: keyCol}
	}
	li, ok := pos[labelCol]
	if !ok {
		return nil, &SchemaError{Sheet: sheet, Missing: labelCol}
	}
	ci := -1
	if categoryCol != "" {
		if ci, ok = pos[categoryCol]; !ok {
			return nil, &SchemaError{Sheet: sheet, Missing: categoryCol}
		}
	}

	entries := make(map[string]Entry)
	for _, row := range rows[1:] {
		if ki >= len(row) || row[ki] == "" {
			continue
		}
		e := Entry{Label: cell(row, li)}
		if ci >= 0 {
			e.Category = cell(row, ci)
		}
		entries[row[ki]] = e
	}
	return NewCatalog(entries), nil
}

// loadMunicipalities builds the municipality catalog keyed by the composite
// entity+municipality code. The raw municipality code is not unique across
// entities, so the composite key is mandatory, built here exactly as the
// flattener builds it for the raw rows.
func loadMunicipalities(f *excelize.File, sheet string) (*Catalog, error) {
	rows, err := sheetRows(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &FormatError{Sheet: sheet, Detail: "sheet is empty"}
	}

	pos := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		pos[name] = i
	}
	for _, name := range []string{"CLAVE_ENTIDAD", "CLAVE_MUNICIPIO", "MUNICIPIO"} {
		if _, ok := pos[name]; !ok {
			return nil, &SchemaError{Sheet: sheet, Missing: name}
		}
	}

	entries := make(map[string]Entry)
	for _, row := range rows[1:] {
		ent := cell(row, pos["CLAVE_ENTIDAD"])
		mun := cell(row, pos["CLAVE_MUNICIPIO"])
		if ent == "" || mun == "" {
			continue
		}
		entries[ent+mun] = Entry{Label: cell(row, pos["MUNICIPIO"])}
	}
	return NewCatalog(entries), nil
}

// loadPositional parses a sheet whose header rows cannot be trusted. Rows
// are matched positionally: anything before the first code-bearing row
// (leading blanks, stray header text) is skipped.
func loadPositional(f *excelize.File, sheet string, width int, parse func([]string) (string, Entry)) (*Catalog, error) {
	rows, err := sheetRows(f, sheet)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry)
	for _, row := range rows {
		if len(row) < width || !isCode(row[0]) {
			continue
		}
		code, e := parse(row)
		entries[code] = e
	}
	if len(entries) == 0 {
		return nil, &FormatError{Sheet: sheet, Detail: fmt.Sprintf("no code rows with %d columns found", width)}
	}
	return NewCatalog(entries), nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// isCode reports whether a cell looks like a catalog code (all digits).
func isCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
