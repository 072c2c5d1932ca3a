package epicurve

import (
	"testing"
	"time"

	"github.com/jdfalcon/covidmx/pkg/catalog"
	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/table"
)

// TestEndToEndCurves runs a small raw extract through the full pipeline:
// normalize, select confirmed cases, then derive the onset and death curves.
func TestEndToEndCurves(t *testing.T) {
	raw, err := table.New(
		[]string{
			flatten.ColIDRegistro, flatten.ColEntidadUM, flatten.ColEntidadNac,
			flatten.ColEntidadRes, flatten.ColMunicipioRes, flatten.ColTipoPaciente,
			flatten.ColFechaIngreso, flatten.ColFechaSintomas, flatten.ColFechaDef,
			flatten.ColEdad, flatten.ColClasificacionFinal, "RESULTADO_LAB", "DIABETES",
		},
		[][]string{
			{"a1", "27", "27", "27", "004", "2", "2021-07-13", "2021-07-10", "2021-07-20", "45", "3", "1", "1"},
			{"a2", "27", "27", "27", "001", "1", "2021-07-13", "2021-07-11", "9999-99-99", "30", "3", "1", "2"},
			{"a3", "27", "27", "27", "004", "1", "2021-07-14", "2021-07-11", "9999-99-99", "8", "7", "2", "2"},
		},
	)
	if err != nil {
		t.Fatalf("build raw table: %v", err)
	}

	cats := &catalog.Set{
		Entities: catalog.NewCatalog(map[string]catalog.Entry{
			"27": {Label: "TABASCO"},
		}),
		Municipalities: catalog.NewCatalog(map[string]catalog.Entry{
			"27001": {Label: "BALANCÁN"},
			"27004": {Label: "CENTRO"},
		}),
		Result: catalog.NewCatalog(map[string]catalog.Entry{
			"1": {Label: "POSITIVO A SARS-COV-2"},
			"2": {Label: "NO POSITIVO A SARS-COV-2"},
		}),
		YesNo: catalog.NewCatalog(map[string]catalog.Entry{
			"1": {Label: "SI"},
			"2": {Label: "NO"},
		}),
		PatientType: catalog.NewCatalog(map[string]catalog.Entry{
			"1": {Label: "AMBULATORIO"},
			"2": {Label: "HOSPITALIZADO"},
		}),
		Classification: catalog.NewCatalog(map[string]catalog.Entry{
			"3": {Label: "CONFIRMADO POR LABORATORIO", Category: "CASO DE SARS-COV-2 CONFIRMADO"},
			"7": {Label: "NEGATIVO POR LABORATORIO", Category: "NEGATIVO A SARS-COV-2"},
		}),
	}
	descs := []catalog.FieldDescriptor{
		{Name: "DIABETES", Format: "CATÁLOGO: SI_ NO"},
	}

	extraction := time.Date(2021, time.July, 14, 0, 0, 0, 0, time.UTC)
	flat, err := flatten.Normalize(raw, extraction, cats, descs, flatten.Options{
		Region: "27",
		Policy: flatten.Binarize,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	confirmed := flatten.Confirmed(flat)
	if confirmed.NumRows() != 2 {
		t.Fatalf("confirmed rows = %d, want 2", confirmed.NumRows())
	}

	onset, err := Daily(confirmed, flatten.ColFechaSintomas, "confirmed")
	if err != nil {
		t.Fatalf("onset curve: %v", err)
	}
	if onset.Total() != 2 {
		t.Fatalf("onset total = %d", onset.Total())
	}
	// Onsets on the 10th and 11th give a two-day contiguous series.
	if len(onset.Points) != 2 {
		t.Fatalf("onset series length = %d", len(onset.Points))
	}

	deaths, err := Daily(flatten.Deceased(confirmed), flatten.ColFechaDef, "deaths")
	if err != nil {
		t.Fatalf("death curve: %v", err)
	}
	if deaths.Total() != 1 {
		t.Fatalf("death total = %d", deaths.Total())
	}

	hosp := flatten.Hospitalized(confirmed)
	if hosp.NumRows() != 1 {
		t.Fatalf("hospitalized rows = %d", hosp.NumRows())
	}

	// Municipal totals line up with the composite keys.
	byMun, err := ByMunicipality(confirmed)
	if err != nil {
		t.Fatalf("by municipality: %v", err)
	}
	if len(byMun) != 2 || byMun[0].Key != "27001" || byMun[1].Key != "27004" {
		t.Fatalf("municipal totals = %+v", byMun)
	}
}
