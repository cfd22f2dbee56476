// Package source supplies raw rows for named source tables. Every reader
// normalizes headers the same way so ingestors only see symbolic keys.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/lox/headcount/internal/normalize"
)

var ErrNotFound = errors.New("source table not found")

// Row is one table row keyed by normalized header.
type Row map[string]string

// Source returns the rows of a named table such as "Pupil enrollment".
type Source interface {
	Rows(ctx context.Context, name string) ([]Row, error)
}

// ReadCSV reads a headed CSV table.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsFromRecords(records), nil
}

func rowsFromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalize.Header(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}

// Memory is a Source backed by rows already in memory.
type Memory map[string][]Row

func (m Memory) Rows(ctx context.Context, name string) ([]Row, error) {
	rows, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return rows, nil
}
