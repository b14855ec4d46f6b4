// Package upload turns uploaded CSV and XLSX files into analysis records.
package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/clickit/analytics-engine/apimodels"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Cell values read as null.
var nullMarkers = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

type Table struct {
	Columns []string
	Rows    []apimodels.Record
}

// Preview returns at most n leading rows.
func (t *Table) Preview(n int) []apimodels.Record {
	return t.Rows[:min(n, len(t.Rows))]
}

// Parse reads a .csv or .xlsx file. The first row is the header; blank rows are skipped.
// Empty cells become null and numeric cells become float64.
func Parse(filename string, r io.Reader) (*Table, error) {
	var grid [][]string
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		grid, err = readCSV(r)
	case ".xlsx", ".xlsm":
		grid, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return fromGrid(grid)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(grid) > 0 && len(grid[0]) > 0 {
		grid[0][0] = strings.TrimPrefix(grid[0][0], "\ufeff")
	}
	return grid, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return grid, nil
}

func fromGrid(grid [][]string) (*Table, error) {
	if len(grid) == 0 {
		return nil, errors.New("file has no header row")
	}

	t := &Table{Columns: headers(grid[0])}
	for _, line := range grid[1:] {
		if blank(line) {
			continue
		}
		rec := make(apimodels.Record, len(t.Columns))
		for i, col := range t.Columns {
			var cell string
			if i < len(line) {
				cell = line[i]
			}
			rec[col] = cellValue(cell)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// headers names empty columns "Unnamed: i" and suffixes repeats with ".n".
func headers(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func blank(line []string) bool {
	for _, c := range line {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if nullMarkers[strings.ToLower(s)] {
		return nil
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(x, 0) {
		return s
	}
	if math.IsNaN(x) {
		return nil
	}
	return x
}
