package catalog

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FieldDescriptor is one row of the descriptor sheet: the declared metadata
// for a single raw-table column.
type FieldDescriptor struct {
	Name   string // variable name as it appears in the raw table header
	Format string // free-text value-domain tag, whitespace-normalized
}

// yesNoDomainTag is the domain tag marking a column as yes/no-coded. The
// stray space before NO is present in the published sheet.
const yesNoDomainTag = "CATÁLOGO: SI_ NO"

// LoadDescriptors parses the descriptor workbook's first sheet into an
// ordered list of field descriptors. Header names and domain-tag values are
// inconsistently padded in the source, so both are trimmed here; skipping
// that trim makes the yes/no column selection silently come up empty.
func LoadDescriptors(path string) ([]FieldDescriptor, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FormatError{Sheet: "", Detail: "descriptor workbook has no sheets"}
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &FormatError{Sheet: sheet, Detail: "sheet is empty"}
	}

	nameCol, formatCol := -1, -1
	for i, h := range rows[0] {
		switch normalizeHeader(h) {
		case "NOMBRE_DE_VARIABLE":
			nameCol = i
		case "FORMATO_O_FUENTE":
			formatCol = i
		}
	}
	if nameCol < 0 {
		return nil, &SchemaError{Sheet: sheet, Missing: "NOMBRE DE VARIABLE"}
	}
	if formatCol < 0 {
		return nil, &SchemaError{Sheet: sheet, Missing: "FORMATO O FUENTE"}
	}

	var out []FieldDescriptor
	for _, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, nameCol))
		if name == "" {
			continue
		}
		out = append(out, FieldDescriptor{
			Name:   name,
			Format: strings.TrimSpace(cell(row, formatCol)),
		})
	}
	return out, nil
}

// YesNoFields returns, in sheet order, the variable names whose domain tag
// marks them as yes/no-coded. This list is the authoritative set of columns
// the flattener transforms.
func YesNoFields(descs []FieldDescriptor) []string {
	var out []string
	for _, d := range descs {
		if d.Format == yesNoDomainTag {
			out = append(out, d.Name)
		}
	}
	return out
}

// normalizeHeader trims a header cell and joins its words with underscores,
// matching the descriptor sheet's spaced header names to canonical form.
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(h), "_")
}
