// Package signal models the numeric tables recorded by a drive logger
// and the lightweight preprocessing applied before analysis. A table is
// a set of equal-length named columns (one per recorded channel); a
// series is one column of samples at a fixed rate.
package signal

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Table construction errors.
var (
	// ErrColumnLength indicates a column whose length differs from the
	// table's existing columns.
	ErrColumnLength = errors.New("signal: column length differs from table")

	// ErrDuplicateColumn indicates a column name already present.
	ErrDuplicateColumn = errors.New("signal: duplicate column name")

	// ErrNoSuchColumn indicates a lookup for an absent column.
	ErrNoSuchColumn = errors.New("signal: no such column")
)

// Series is one recorded channel: an ordered sequence of samples, one
// value per discrete time step.
type Series []float64

// Summary holds the descriptive statistics shown for a channel.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summarize computes descriptive statistics for the series. An empty
// series yields a zero Summary.
func (s Series) Summarize() Summary {
	if len(s) == 0 {
		return Summary{}
	}
	return Summary{
		Count: len(s),
		Mean:  stat.Mean(s, nil),
		Std:   stat.StdDev(s, nil),
		Min:   floats.Min(s),
		Max:   floats.Max(s),
	}
}

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Table is an ordered set of equal-length named columns — the in-memory
// form of one drive log. Column order is the order columns were added
// (the log's header order).
type Table struct {
	names []string
	cols  map[string]Series
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{cols: make(map[string]Series)}
}

// AddColumn appends a named column. All columns must share one length.
func (t *Table) AddColumn(name string, s Series) error {
	if _, ok := t.cols[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(t.names) > 0 && len(s) != t.Len() {
		return fmt.Errorf("%w: %q has %d samples, table has %d", ErrColumnLength, name, len(s), t.Len())
	}
	t.names = append(t.names, name)
	t.cols[name] = s
	return nil
}

// Column returns the named column.
func (t *Table) Column(name string) (Series, error) {
	s, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchColumn, name)
	}
	return s, nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Names returns the column names in header order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of samples per column, 0 for an empty table.
func (t *Table) Len() int {
	if len(t.names) == 0 {
		return 0
	}
	return len(t.cols[t.names[0]])
}
