package dataset

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Options controls how tabular files are turned into a Dataset.
type Options struct {
	// Response is the dependent column (matched case-insensitively).
	Response string
	// Drop names columns to discard before modelling (identifiers, tickers, periods).
	Drop []string
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picks '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns loader defaults for the balance-sheet datasets.
func DefaultOptions() Options {
	return Options{
		Response:   "close_price",
		MaxRows:    100000,
		SheetIndex: 1,
	}
}

// Table is a raw header + string rows pair produced by a Reader.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Reader turns a file on disk into a raw Table.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt Options) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// ErrUnsupported indicates no registered reader handles the file extension.
var ErrUnsupported = errors.New("unsupported dataset format")

// ReadTable selects a reader by filename and returns the raw table.
func ReadTable(path string, opt Options) (*Table, error) {
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

// Load reads a file and converts it into a Dataset.
func Load(path string, opt Options) (*Dataset, error) {
	t, err := ReadTable(path, opt)
	if err != nil {
		return nil, err
	}
	return FromTable(t, opt)
}

// FromTable infers column kinds, drops identifier/date/text columns and the
// explicitly dropped ones, and parses the remaining cells as numbers.
// Unparseable or empty numeric cells become NaN.
func FromTable(t *Table, opt Options) (*Dataset, error) {
	if t == nil || len(t.Header) == 0 {
		return nil, errors.New("dataset is empty")
	}
	drop := map[string]struct{}{}
	for _, d := range opt.Drop {
		drop[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	type column struct {
		name   string
		unit   string
		values []float64
		numCnt int
		dtCnt  int
		txtCnt int
	}
	cols := make([]*column, len(t.Header))
	for i, h := range t.Header {
		clean, unit := splitUnits(strings.TrimSpace(h))
		cols[i] = &column{name: clean, unit: unit, values: make([]float64, 0, len(t.Rows))}
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	for r, rec := range t.Rows {
		if r >= maxRows {
			break
		}
		for j, c := range cols {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if v == "" {
				c.values = append(c.values, math.NaN())
				continue
			}
			if x, ok := parseNumeric(v, opt); ok {
				c.numCnt++
				c.values = append(c.values, x)
				continue
			}
			c.values = append(c.values, math.NaN())
			if _, ok := parseTimeMaybe(v); ok {
				c.dtCnt++
				continue
			}
			c.txtCnt++
		}
	}

	var (
		names   []string
		dropped []string
		data    = map[string][]float64{}
	)
	for _, c := range cols {
		_, explicit := drop[strings.ToLower(c.name)]
		numeric := c.numCnt > 0 && c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt
		if explicit || !numeric || c.name == "" {
			dropped = append(dropped, c.name)
			continue
		}
		if _, dup := data[c.name]; dup {
			dropped = append(dropped, c.name)
			continue
		}
		names = append(names, c.name)
		data[c.name] = c.values
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: no numeric columns", t.Name)
	}
	d, err := New(t.Name, opt.Response, names, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	d.dropped = dropped
	return d, nil
}
