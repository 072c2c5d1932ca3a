package catalog

import "fmt"

// SchemaError indicates that a sheet or column required by the current
// dictionary format is missing from the workbook. It is fatal to the
// extraction that needed it.
type SchemaError struct {
	Sheet   string
	Missing string
}

func (e *SchemaError) Error() string {
	if e.Missing == "" {
		return fmt.Sprintf("catalog workbook: missing required sheet %q", e.Sheet)
	}
	return fmt.Sprintf("catalog sheet %q: missing required column %q", e.Sheet, e.Missing)
}

// FormatError indicates that a sheet exists but its contents are not laid
// out the way the format version says they should be.
type FormatError struct {
	Sheet  string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("catalog sheet %q: %s", e.Sheet, e.Detail)
}
