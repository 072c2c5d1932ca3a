package flatten

import (
	"fmt"
	"time"

	"github.com/jdfalcon/covidmx/pkg/catalog"
)

// FormatVersion is one dictionary schema epoch: which workbook sheets feed
// which catalogs and what the raw lab-result column is called. The ministry
// renamed sheets and columns when it switched schemas, and the two epochs
// are not served by one code path; a version is selected once per
// extraction date and threaded through, instead of branching inline at each
// normalization step.
type FormatVersion struct {
	Name string
	// From is the first extraction date the version applies to.
	From time.Time
	// Sheets names the workbook sheets this version's catalogs live in.
	Sheets catalog.SheetNames
	// RawResultColumn is the source column holding the lab result; it is
	// renamed to ColResultado during flattening.
	RawResultColumn string
	// ResultRelabel canonicalizes result labels that changed spelling
	// between publications.
	ResultRelabel map[string]string
}

// v201128 is the schema introduced on 2020-11-28, the earliest supported
// epoch. Earlier snapshots use incompatible sheet and column names.
var v201128 = FormatVersion{
	Name: "201128",
	From: time.Date(2020, time.November, 28, 0, 0, 0, 0, time.UTC),
	Sheets: catalog.SheetNames{
		Entities:       "Catálogo de ENTIDADES",
		Municipalities: "Catálogo MUNICIPIOS",
		Result:         "Catálogo RESULTADO_LAB",
		YesNo:          "Catálogo SI_NO",
		PatientType:    "Catálogo TIPO_PACIENTE",
		Classification: "Catálogo CLASIFICACION_FINAL",
	},
	RawResultColumn: "RESULTADO_LAB",
	ResultRelabel: map[string]string{
		"POSITIVO A SARS-COV-2": "Positivo SARS-CoV-2",
	},
}

// VersionFor selects the format version for an extraction date. Dates
// before the earliest supported epoch fail with UnsupportedFormatError.
func VersionFor(extractionDate time.Time) (*FormatVersion, error) {
	if extractionDate.Before(v201128.From) {
		return nil, &UnsupportedFormatError{Date: extractionDate, Supported: v201128.From}
	}
	v := v201128
	return &v, nil
}

// UnsupportedFormatError is returned when the requested extraction date
// predates the supported dictionary schema. It is fatal to that extraction,
// not to the process.
type UnsupportedFormatError struct {
	Date      time.Time
	Supported time.Time
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("extraction date %s predates the supported dictionary format (%s and later)",
		e.Date.Format(DateLayout), e.Supported.Format(DateLayout))
}

// ValidationError reports a cell that violates a domain constraint. Row is
// the zero-based data row, or -1 if the failure is not row-specific.
type ValidationError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %s: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("row %d, column %s: %s (value %q)", e.Row, e.Column, e.Reason, e.Value)
}
