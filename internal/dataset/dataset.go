package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Dataset is an immutable, column-major table of numeric columns with one
// designated response. Missing cells are stored as NaN. Accessors return
// copies so callers can never alias the underlying storage.
type Dataset struct {
	name     string
	response string
	names    []string // every numeric column, response included, in file order
	cols     map[string][]float64
	rows     int
	dropped  []string
}

// Observation is one record: predictor values keyed by column name plus the response.
type Observation struct {
	Values   map[string]float64
	Response float64
}

// New builds a dataset from named columns. Every column must have the same
// length and the response must be one of them.
func New(name, response string, names []string, columns map[string][]float64) (*Dataset, error) {
	if len(names) == 0 {
		return nil, errors.New("dataset has no columns")
	}
	d := &Dataset{name: name, cols: make(map[string][]float64, len(names))}
	rows := -1
	seen := map[string]struct{}{}
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("duplicate column %q", n)
		}
		seen[n] = struct{}{}
		col, ok := columns[n]
		if !ok {
			return nil, fmt.Errorf("column %q declared but missing", n)
		}
		if rows >= 0 && len(col) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", n, len(col), rows)
		}
		rows = len(col)
		cp := make([]float64, len(col))
		copy(cp, col)
		d.cols[n] = cp
		d.names = append(d.names, n)
	}
	d.rows = rows
	resp, ok := d.Resolve(response)
	if !ok {
		return nil, fmt.Errorf("response column %q not found (columns: %s)", response, strings.Join(names, ", "))
	}
	d.response = resp
	return d, nil
}

// Resolve maps a user-supplied column name to the stored one, case-insensitively.
func (d *Dataset) Resolve(name string) (string, bool) {
	if _, ok := d.cols[name]; ok {
		return name, true
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, n := range d.names {
		if strings.ToLower(n) == want {
			return n, true
		}
	}
	return "", false
}

func (d *Dataset) Name() string     { return d.name }
func (d *Dataset) Response() string { return d.response }
func (d *Dataset) Len() int         { return d.rows }

// Columns returns every numeric column name including the response.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Predictors returns every column name except the response, in file order.
func (d *Dataset) Predictors() []string {
	out := make([]string, 0, len(d.names))
	for _, n := range d.names {
		if n != d.response {
			out = append(out, n)
		}
	}
	return out
}

// Dropped lists columns the loader discarded (identifiers, dates, text).
func (d *Dataset) Dropped() []string {
	out := make([]string, len(d.dropped))
	copy(out, d.dropped)
	return out
}

// Has reports whether the dataset declares the column.
func (d *Dataset) Has(name string) bool {
	_, ok := d.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]float64, bool) {
	col, ok := d.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, true
}

// ResponseValues returns a copy of the response column.
func (d *Dataset) ResponseValues() []float64 {
	v, _ := d.Column(d.response)
	return v
}

// Observation returns row i.
func (d *Dataset) Observation(i int) Observation {
	o := Observation{Values: make(map[string]float64, len(d.names)-1)}
	for _, n := range d.names {
		if n == d.response {
			o.Response = d.cols[n][i]
			continue
		}
		o.Values[n] = d.cols[n][i]
	}
	return o
}

// WithColumn returns a new dataset with the column added (or replaced).
func (d *Dataset) WithColumn(name string, values []float64) (*Dataset, error) {
	if len(values) != d.rows {
		return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(values), d.rows)
	}
	names := d.Columns()
	if !d.Has(name) {
		names = append(names, name)
	}
	cols := make(map[string][]float64, len(names))
	for n, c := range d.cols {
		cols[n] = c
	}
	cols[name] = values
	out, err := New(d.name, d.response, names, cols)
	if err != nil {
		return nil, err
	}
	out.dropped = d.Dropped()
	return out, nil
}

// WithResponse returns a new dataset designating another column as the response.
func (d *Dataset) WithResponse(name string) (*Dataset, error) {
	out, err := New(d.name, name, d.names, d.cols)
	if err != nil {
		return nil, err
	}
	out.dropped = d.Dropped()
	return out, nil
}

// CompleteCases returns the rows with a finite value in every named column
// and in the response.
func (d *Dataset) CompleteCases(names []string) (*Dataset, error) {
	check := []string{d.response}
	for _, n := range names {
		if !d.Has(n) {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		check = append(check, n)
	}
	keep := make([]int, 0, d.rows)
	for i := 0; i < d.rows; i++ {
		ok := true
		for _, n := range check {
			v := d.cols[n][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == d.rows {
		return d, nil
	}
	cols := make(map[string][]float64, len(d.names))
	for _, n := range d.names {
		src := d.cols[n]
		dst := make([]float64, len(keep))
		for j, i := range keep {
			dst[j] = src[i]
		}
		cols[n] = dst
	}
	out, err := New(d.name, d.response, d.names, cols)
	if err != nil {
		return nil, err
	}
	out.dropped = d.Dropped()
	return out, nil
}

// Subset returns a dataset restricted to the named columns plus the response.
func (d *Dataset) Subset(names []string) (*Dataset, error) {
	keep := []string{}
	cols := map[string][]float64{}
	want := map[string]struct{}{d.response: {}}
	for _, n := range names {
		r, ok := d.Resolve(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		want[r] = struct{}{}
	}
	for _, n := range d.names {
		if _, ok := want[n]; ok {
			keep = append(keep, n)
			cols[n] = d.cols[n]
		}
	}
	out, err := New(d.name, d.response, keep, cols)
	if err != nil {
		return nil, err
	}
	out.dropped = d.Dropped()
	return out, nil
}
