package flatten

// Raw-table column names as published by the ministry, plus the columns the
// flattener derives. Kept as constants so callers and tests never spell
// them ad hoc.
const (
	ColIDRegistro          = "ID_REGISTRO"
	ColFechaActualizacion  = "FECHA_ACTUALIZACION"
	ColEntidadUM           = "ENTIDAD_UM"
	ColEntidadNac          = "ENTIDAD_NAC"
	ColEntidadRes          = "ENTIDAD_RES"
	ColMunicipioRes        = "MUNICIPIO_RES"
	ColTipoPaciente        = "TIPO_PACIENTE"
	ColFechaIngreso        = "FECHA_INGRESO"
	ColFechaSintomas       = "FECHA_SINTOMAS"
	ColFechaDef            = "FECHA_DEF"
	ColEdad                = "EDAD"
	ColClasificacionFinal  = "CLASIFICACION_FINAL"
	ColResultado           = "RESULTADO"

	// Derived.
	ColClaveEntidadRes   = "CLAVE_ENTIDAD_RES"
	ColClaveMunicipioRes = "CLAVE_MUNICIPIO_RES"
	ColDefuncion         = "DEFUNCION"
	ColAnioIngreso       = "AÑO_INGRESO"
	ColMesIngreso        = "MES_INGRESO"
	ColDiaSemanaIngreso  = "DIA_SEMANA_INGRESO"
	ColSemanaAnioIngreso = "SEMANA_AÑO_INGRESO"
	ColDiaMesIngreso     = "DIA_MES_INGRESO"
	ColDiaAnioIngreso    = "DIA_AÑO_INGRESO"
)

// DeathSentinel is the ministry's "not applicable" death-date literal.
const DeathSentinel = "9999-99-99"

// DateLayout is the calendar-date format used throughout the raw table.
const DateLayout = "2006-01-02"
