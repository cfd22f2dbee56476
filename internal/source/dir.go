package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Dir reads tables from a local directory, preferring "<name>.csv" and
// falling back to "<name>.xlsx".
type Dir struct {
	path string
}

func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) Rows(ctx context.Context, name string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(d.path, name+".csv")
	f, err := os.Open(csvPath)
	if err == nil {
		defer f.Close()
		rows, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", csvPath, err)
		}
		return rows, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", csvPath, err)
	}

	xlsxPath := filepath.Join(d.path, name+".xlsx")
	f, err = os.Open(xlsxPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q in %s", ErrNotFound, name, d.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", xlsxPath, err)
	}
	defer f.Close()

	rows, err := ReadXLSX(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", xlsxPath, err)
	}
	return rows, nil
}

// ReadXLSX reads the first sheet of a workbook as a headed table.
func ReadXLSX(r io.Reader) ([]Row, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rowsFromRecords(records), nil
}
