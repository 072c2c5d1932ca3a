package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ReadCSV parses a case table from r. The ministry publishes its CSVs in
// Latin-1; set latin1 to decode them, leave it false for UTF-8 fixtures.
// Cells are kept as raw strings, typing happens later during flattening.
func ReadCSV(r io.Reader, latin1 bool) (*Table, error) {
	if latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, c := range head {
		head[i] = strings.TrimSpace(c)
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}

	return New(head, rows)
}

// ReadCSVFile opens and parses a CSV file.
func ReadCSVFile(path string, latin1 bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f, latin1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
