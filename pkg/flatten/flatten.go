// Package flatten turns a raw wide-format case-tracking table into a fully
// resolved, typed, analysis-ready one: coded cells become catalog labels,
// composite municipality keys are derived, yes/no fields are resolved under
// a caller-chosen policy and calendar fields are derived from the admission
// date. Normalization is a pure function of its inputs (table in, new
// table out), so independent (extraction date, region) pairs can be
// flattened in parallel.
package flatten

import (
	"fmt"
	"time"

	"github.com/jdfalcon/covidmx/pkg/catalog"
	"github.com/jdfalcon/covidmx/pkg/table"
)

// Policy selects how yes/no-coded columns are resolved.
type Policy string

const (
	// Substitute overwrites the coded values with their labels in place.
	Substitute Policy = "substitute"
	// Augment keeps the raw codes and adds sibling _NOM label columns.
	Augment Policy = "augment"
	// Binarize keeps the raw codes and adds sibling _BIN columns holding
	// 1 for yes and 0 for every other domain value.
	Binarize Policy = "binarize"
)

// ParsePolicy converts a user-supplied policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case Substitute, Augment, Binarize:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown yes/no policy %q (want substitute, augment or binarize)", s)
}

// Options configures a Normalize call.
type Options struct {
	// Region restricts processing to rows whose residence-entity code
	// equals it. Empty means all regions, which is only reasonable for
	// small extracts.
	Region string
	// Policy is the yes/no resolution strategy, applied uniformly to every
	// yes/no column in one pass.
	Policy Policy
}

// Normalize flattens a raw case table using the given catalogs and field
// descriptors. Validation and schema errors surface before any output is
// produced; callers get all-or-nothing per extraction. Row count is always
// preserved: normalization never drops or adds rows (the optional region
// filter applies before normalization proper and is part of the contract).
func Normalize(raw *table.Table, extractionDate time.Time, cats *catalog.Set, descs []catalog.FieldDescriptor, opts Options) (*table.Table, error) {
	ver, err := VersionFor(extractionDate)
	if err != nil {
		return nil, err
	}
	if err := requireCatalogs(cats, ver); err != nil {
		return nil, err
	}
	if opts.Policy == "" {
		opts.Policy = Substitute
	}

	t := raw
	if opts.Region != "" {
		t = t.Filter(func(r table.Row) bool { return r.Get(ColEntidadRes) == opts.Region })
	}

	// The data file spells one comorbidity column OTRA_COM while the
	// descriptor sheet declares OTRAS_COM; without this rename the yes/no
	// resolution for that column silently never matches.
	t, err = t.Rename(map[string]string{"OTRA_COM": "OTRAS_COM"})
	if err != nil {
		return nil, err
	}

	// Municipality sub-codes are only unique within an entity. The
	// composite key lands both in MUNICIPIO_RES (resolved to a name below)
	// and in CLAVE_MUNICIPIO_RES, which stays a key for map joins.
	ents, err := t.Column(ColEntidadRes)
	if err != nil {
		return nil, fmt.Errorf("raw table: %w", err)
	}
	muns, err := t.Column(ColMunicipioRes)
	if err != nil {
		return nil, fmt.Errorf("raw table: %w", err)
	}
	comps := make([]string, len(muns))
	for i := range muns {
		comps[i] = ents[i] + muns[i]
	}
	if t, err = t.SetColumn(ColMunicipioRes, comps); err != nil {
		return nil, err
	}
	if t, err = t.SetColumn(ColClaveMunicipioRes, comps); err != nil {
		return nil, err
	}
	if t, err = t.SetColumn(ColClaveEntidadRes, ents); err != nil {
		return nil, err
	}

	// One substitution map from the entity catalog rewrites all three
	// entity columns in a single pass.
	t, err = t.MapColumns([]string{ColEntidadRes, ColEntidadUM, ColEntidadNac}, cats.Entities.Label)
	if err != nil {
		return nil, fmt.Errorf("resolve entity codes: %w", err)
	}

	t, err = t.MapColumns([]string{ColMunicipioRes}, cats.Municipalities.Label)
	if err != nil {
		return nil, fmt.Errorf("resolve municipality codes: %w", err)
	}

	// The lab-result column name depends on the format epoch; normalize it
	// before resolving.
	t, err = t.Rename(map[string]string{ver.RawResultColumn: ColResultado})
	if err != nil {
		return nil, err
	}
	t, err = t.MapColumns([]string{ColResultado}, func(code string) string {
		label := cats.Result.Label(code)
		if canon, ok := ver.ResultRelabel[label]; ok {
			return canon
		}
		return label
	})
	if err != nil {
		return nil, fmt.Errorf("resolve result codes: %w", err)
	}

	// Classification resolves to its category grouping, the value the
	// confirmed-case filters match on.
	t, err = t.MapColumns([]string{ColClasificacionFinal}, cats.Classification.Category)
	if err != nil {
		return nil, fmt.Errorf("resolve classification codes: %w", err)
	}

	if t, err = resolveYesNo(t, cats.YesNo, descs, opts.Policy); err != nil {
		return nil, err
	}

	t, err = t.MapColumns([]string{ColTipoPaciente}, cats.PatientType.Label)
	if err != nil {
		return nil, fmt.Errorf("resolve patient type codes: %w", err)
	}

	return DeriveDates(t)
}

// resolveYesNo applies the policy to every descriptor-identified yes/no
// column.
func resolveYesNo(t *table.Table, yesNo *catalog.Catalog, descs []catalog.FieldDescriptor, policy Policy) (*table.Table, error) {
	fields := catalog.YesNoFields(descs)
	for _, f := range fields {
		if !t.HasColumn(f) {
			return nil, &ValidationError{Row: -1, Column: f,
				Reason: "descriptor-declared yes/no column missing from raw table"}
		}
	}

	switch policy {
	case Substitute:
		return t.MapColumns(fields, yesNo.Label)
	case Augment, Binarize:
		suffix := "_NOM"
		resolve := yesNo.Label
		if policy == Binarize {
			suffix = "_BIN"
			resolve = func(code string) string {
				if e, ok := yesNo.Lookup(code); ok && e.Label == "SI" {
					return "1"
				}
				return "0"
			}
		}
		var err error
		for _, f := range fields {
			vals, cerr := t.Column(f)
			if cerr != nil {
				return nil, cerr
			}
			for i, v := range vals {
				vals[i] = resolve(v)
			}
			if t, err = t.SetColumn(f+suffix, vals); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown yes/no policy %q", policy)
}

// requireCatalogs verifies that every catalog the format version needs was
// actually loaded.
func requireCatalogs(cats *catalog.Set, ver *FormatVersion) error {
	if cats == nil {
		return &catalog.SchemaError{Sheet: ver.Sheets.Entities}
	}
	checks := []struct {
		c     *catalog.Catalog
		sheet string
	}{
		{cats.Entities, ver.Sheets.Entities},
		{cats.Municipalities, ver.Sheets.Municipalities},
		{cats.Result, ver.Sheets.Result},
		{cats.YesNo, ver.Sheets.YesNo},
		{cats.PatientType, ver.Sheets.PatientType},
		{cats.Classification, ver.Sheets.Classification},
	}
	for _, ck := range checks {
		if ck.c == nil {
			return &catalog.SchemaError{Sheet: ck.sheet}
		}
	}
	return nil
}
