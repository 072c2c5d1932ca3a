// Package catalog loads the dictionary artifacts that accompany each daily
// publication of the health ministry's case-tracking snapshot: the
// multi-sheet catalog workbook (code → label tables) and the descriptor
// sheet (per-column value-domain metadata).
//
// Catalogs are loaded once per extraction and are read-only afterwards;
// nothing in this package caches across calls.
package catalog

import (
	"sort"
	"strings"
)

// Entry is one resolved catalog row.
type Entry struct {
	Label string
	// Category is only populated for the final-classification catalog,
	// where codes additionally roll up into a grouping.
	Category string
}

// Catalog maps a code to its descriptive attributes. Lookup of a code that
// is absent from the catalog is not an error: it resolves to an explicit
// unresolved marker so downstream counts stay auditable.
type Catalog struct {
	entries map[string]Entry
}

// NewCatalog builds a catalog from a code → entry map.
func NewCatalog(entries map[string]Entry) *Catalog {
	m := make(map[string]Entry, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Catalog{entries: m}
}

// Len returns the number of codes in the catalog.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup returns the entry for a code and whether it exists.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	e, ok := c.entries[code]
	return e, ok
}

// Label resolves a code to its label. An empty code stays empty (a
// legitimately absent value); an unknown code resolves to the unresolved
// marker, never to an error.
func (c *Catalog) Label(code string) string {
	if code == "" {
		return ""
	}
	if e, ok := c.entries[code]; ok {
		return e.Label
	}
	return UnresolvedLabel(code)
}

// Category resolves a code to its category grouping, with the same missing
// semantics as Label.
func (c *Catalog) Category(code string) string {
	if code == "" {
		return ""
	}
	if e, ok := c.entries[code]; ok {
		return e.Category
	}
	return UnresolvedLabel(code)
}

// Codes returns all codes in sorted order.
func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

const unresolvedPrefix = "NO CATALOGADO ("

// UnresolvedLabel is the marker a code resolves to when it is present in the
// raw data but absent from its catalog. It is distinguishable both from
// valid labels and from legitimately empty cells.
func UnresolvedLabel(code string) string {
	return unresolvedPrefix + code + ")"
}

// IsUnresolved reports whether a resolved value is an unresolved-code marker.
func IsUnresolved(label string) bool {
	return strings.HasPrefix(label, unresolvedPrefix) && strings.HasSuffix(label, ")")
}

// Set holds the catalogs one dictionary workbook provides, one per coded
// domain of the raw table.
type Set struct {
	Entities       *Catalog // 2-char federal entity code → entity name
	Municipalities *Catalog // composite entity+municipality key → municipality name
	Result         *Catalog // lab/antigen result code → result label
	YesNo          *Catalog // binary domain code → SI / NO / NO APLICA / ...
	PatientType    *Catalog // patient-type code → AMBULATORIO / HOSPITALIZADO
	Classification *Catalog // final-classification code → label + category
}

// SheetNames declares which workbook sheet feeds each catalog. The names
// differ across dictionary format versions, so callers supply them from the
// format version selected by the extraction date.
type SheetNames struct {
	Entities       string
	Municipalities string
	Result         string
	YesNo          string
	PatientType    string
	Classification string
}
