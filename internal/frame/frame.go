// Package frame adapts row-oriented records into a frame with column access
// for the numeric routines in internal/model.
package frame

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/clickit/analytics-engine/apimodels"
)

// Frame holds a copy of the input rows, in frame order.
// Rows are shallow copies, so callers may add fields without touching the input.
type Frame struct {
	rows       []apimodels.Record
	dateColumn string
	times      []time.Time
}

type Option func(*options)

type options struct {
	dateColumn string
	sortByDate bool
}

// WithDateColumn parses the named column into temporal keys.
// An empty name is ignored.
func WithDateColumn(name string) Option {
	return func(o *options) {
		o.dateColumn = name
	}
}

// SortedByDate orders rows ascending by the date column. Ties keep input order.
// It has no effect without WithDateColumn.
func SortedByDate() Option {
	return func(o *options) {
		o.sortByDate = true
	}
}

func New(records []apimodels.Record, opts ...Option) (*Frame, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	f := &Frame{
		rows:       make([]apimodels.Record, len(records)),
		dateColumn: o.dateColumn,
	}
	for i, r := range records {
		row := make(apimodels.Record, len(r)+1)
		maps.Copy(row, r)
		f.rows[i] = row
	}

	if o.dateColumn == "" {
		return f, nil
	}

	f.times = make([]time.Time, len(f.rows))
	for i, row := range f.rows {
		t, err := parseTime(row[o.dateColumn])
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %v", apimodels.ErrDataFormat, o.dateColumn, i, err)
		}
		f.times[i] = t
		row[o.dateColumn] = t
	}

	if o.sortByDate {
		f.sortByTime()
	}
	return f, nil
}

func (f *Frame) sortByTime() {
	idx := make([]int, len(f.rows))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return f.times[a].Compare(f.times[b])
	})

	rows := make([]apimodels.Record, len(idx))
	times := make([]time.Time, len(idx))
	for to, from := range idx {
		rows[to] = f.rows[from]
		times[to] = f.times[from]
	}
	f.rows, f.times = rows, times
}

func (f *Frame) Len() int { return len(f.rows) }

// Rows returns the frame rows in frame order.
func (f *Frame) Rows() []apimodels.Record { return f.rows }

// DateColumn returns the parsed date column name, or "" if none.
func (f *Frame) DateColumn() string { return f.dateColumn }

// Times returns the temporal keys in frame order, or nil without a date column.
func (f *Frame) Times() []time.Time { return f.times }

// HasColumn reports whether any row carries the column.
func (f *Frame) HasColumn(name string) bool {
	for _, row := range f.rows {
		if _, ok := row[name]; ok {
			return true
		}
	}
	return false
}

// Series is a numeric column with an explicit null marker per row.
type Series struct {
	Values []float64
	Valid  []bool
}

func (s Series) Len() int { return len(s.Values) }

// FirstNull returns the index of the first null entry, or -1.
func (s Series) FirstNull() int {
	return slices.Index(s.Valid, false)
}

// Numeric extracts a column as float64 values.
// Missing and null cells become invalid entries; other non-numeric cells are a data format error.
func (f *Frame) Numeric(name string) (Series, error) {
	s := Series{
		Values: make([]float64, len(f.rows)),
		Valid:  make([]bool, len(f.rows)),
	}
	present := false
	for i, row := range f.rows {
		v, ok := row[name]
		if !ok {
			continue
		}
		present = true
		if v == nil {
			continue
		}
		x, err := toFloat(v)
		if err != nil {
			return Series{}, fmt.Errorf("%w: column %q row %d: %v", apimodels.ErrDataFormat, name, i, err)
		}
		if math.IsNaN(x) {
			continue
		}
		if math.IsInf(x, 0) {
			return Series{}, fmt.Errorf("%w: column %q row %d: non-finite value %v", apimodels.ErrDataFormat, name, i, v)
		}
		s.Values[i] = x
		s.Valid[i] = true
	}
	if !present {
		return Series{}, fmt.Errorf("%w: column %q not found", apimodels.ErrInvalidColumn, name)
	}
	return s, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", n)
		}
		return x, nil
	default:
		return 0, fmt.Errorf("%v (%T) is not numeric", v, v)
	}
}
