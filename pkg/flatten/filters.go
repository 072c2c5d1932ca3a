package flatten

import "github.com/jdfalcon/covidmx/pkg/table"

// ConfirmedClassifications are the final-classification categories counted
// as confirmed cases.
var ConfirmedClassifications = []string{
	"CASO DE COVID-19 CONFIRMADO POR ASOCIACIÓN CLÍNICA EPIDEMIOLÓGICA",
	"CASO DE COVID-19 CONFIRMADO POR COMITÉ DE DICTAMINACIÓN",
	"CASO DE SARS-COV-2 CONFIRMADO",
}

// HospitalizedLabel is the resolved patient-type label for inpatients.
const HospitalizedLabel = "HOSPITALIZADO"

// Confirmed returns the rows whose resolved classification is a confirmed
// category.
func Confirmed(t *table.Table) *table.Table {
	set := make(map[string]bool, len(ConfirmedClassifications))
	for _, v := range ConfirmedClassifications {
		set[v] = true
	}
	return t.Filter(func(r table.Row) bool { return set[r.Get(ColClasificacionFinal)] })
}

// Deceased returns the rows with a present death date.
func Deceased(t *table.Table) *table.Table {
	return t.Filter(func(r table.Row) bool { return r.Get(ColDefuncion) == "1" })
}

// Hospitalized returns the rows whose resolved patient type is inpatient.
func Hospitalized(t *table.Table) *table.Table {
	return t.Filter(func(r table.Row) bool { return r.Get(ColTipoPaciente) == HospitalizedLabel })
}
