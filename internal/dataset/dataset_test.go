package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParseNumeric_Locales(t *testing.T) {
	cases := []struct {
		in   string
		opt  Options
		want float64
	}{
		{"1,234.5", Options{}, 1234.5},
		{"1.234,5", Options{}, 1234.5},
		{"12,5", Options{}, 12.5},
		{"12 %", Options{}, 12},
		{"(3.2)", Options{}, -3.2},
		{"$1,000", Options{}, 1000},
		{"1 234,75", Options{DecimalSeparator: ',', ThousandsSeparator: ' '}, 1234.75},
		{"2.500", Options{DecimalSeparator: ',', ThousandsSeparator: '.'}, 2500},
	}
	for _, c := range cases {
		got, ok := parseNumeric(c.in, c.opt)
		require.True(t, ok, c.in)
		assert.InDelta(t, c.want, got, 1e-9, c.in)
	}
	_, ok := parseNumeric("ACME", Options{})
	assert.False(t, ok)
}

func TestLoadCSV_DropsIdentifiersAndText(t *testing.T) {
	body := "\ufeffDate,Ticker,Revenue (USD),Assets [USD],Close_Price\n" +
		"2024-01-31,ACME,\"1,200.5\",300,10.5\n" +
		"2024-02-29,ACME,\"1,310.0\",,11.25\n" +
		"2024-03-31,ACME,n/a,320,12\n"
	p := writeFile(t, "acme.csv", body)

	ds, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "acme.csv", ds.Name())
	assert.Equal(t, "Close_Price", ds.Response(), "response is matched case-insensitively")
	assert.Equal(t, []string{"Revenue", "Assets"}, ds.Predictors())
	assert.Equal(t, []string{"Date", "Ticker"}, ds.Dropped())
	assert.Equal(t, 3, ds.Len())

	rev, ok := ds.Column("Revenue")
	require.True(t, ok)
	assert.Equal(t, 1200.5, rev[0])
	assert.True(t, math.IsNaN(rev[2]))

	cc, err := ds.CompleteCases(ds.Predictors())
	require.NoError(t, err)
	assert.Equal(t, 1, cc.Len())
}

func TestLoadCSV_ExplicitDropAndDelimiter(t *testing.T) {
	p := writeFile(t, "semi.tsv", "year\tsales\tclose_price\n2021\t1,5\t10\n2022\t2,5\t12\n")
	opt := DefaultOptions()
	opt.Drop = []string{"YEAR"}
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, ds.Predictors())
	assert.Equal(t, []string{"year"}, ds.Dropped())
	sales, _ := ds.Column("sales")
	assert.Equal(t, []float64{1.5, 2.5}, sales)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "notes.txt", "x"), DefaultOptions())
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Load(writeFile(t, "text.csv", "name,city\na,b\n"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no numeric columns")

	_, err = Load(writeFile(t, "noresp.csv", "a,b\n1,2\n"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response column \"close_price\" not found")
}

func TestLoadXLSX_SheetSelection(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Q4")
	require.NoError(t, err)
	rows := [][]any{
		{"ticker", "equity", "close_price"},
		{"ACME", 10.0, 100.0},
		{"ACME", 12.0, 120.0},
		{"ACME", 15.0, 140.0},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Q4", cell, &r))
	}
	p := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(p))

	opt := DefaultOptions()
	opt.SheetName = "q4"
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"equity"}, ds.Predictors())
	assert.Equal(t, []float64{100, 120, 140}, ds.ResponseValues())

	opt.SheetName = "missing"
	_, err = Load(p, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Sheet1, Q4")

	opt.SheetName, opt.SheetIndex = "", 5
	_, err = Load(p, opt)
	assert.Error(t, err)
}

func TestDataset_CopiesAndDerivations(t *testing.T) {
	ds, err := New("t", "y", []string{"a", "b", "y"}, map[string][]float64{
		"a": {1, 2, 3}, "b": {4, 5, 6}, "y": {7, 8, 9},
	})
	require.NoError(t, err)

	a, _ := ds.Column("a")
	a[0] = 99
	again, _ := ds.Column("a")
	assert.Equal(t, 1.0, again[0])

	obs := ds.Observation(1)
	assert.Equal(t, 8.0, obs.Response)
	assert.Equal(t, map[string]float64{"a": 2, "b": 5}, obs.Values)

	sub, err := ds.Subset([]string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "y"}, sub.Columns())

	wr, err := ds.WithResponse("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "y"}, wr.Predictors())

	wc, err := ds.WithColumn("c", []float64{0, 0, 0})
	require.NoError(t, err)
	assert.True(t, wc.Has("c"))
	assert.False(t, ds.Has("c"))
	_, err = ds.WithColumn("c", []float64{0})
	assert.Error(t, err)

	_, err = New("t", "y", []string{"a", "y"}, map[string][]float64{"a": {1}, "y": {1, 2}})
	assert.Error(t, err)
	_, err = New("t", "y", []string{"a", "a"}, map[string][]float64{"a": {1}})
	assert.Error(t, err)
}

func TestDataset_ResolveIgnoresCase(t *testing.T) {
	ds, err := New("t", "Close_Price", []string{"Revenue", "leverage", "Close_Price"}, map[string][]float64{
		"Revenue": {1, 2, 3}, "leverage": {4, 5, 6}, "Close_Price": {7, 8, 9},
	})
	require.NoError(t, err)

	for in, want := range map[string]string{"Revenue": "Revenue", "revenue": "Revenue", " LEVERAGE ": "leverage"} {
		got, ok := ds.Resolve(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ds.Resolve("headcount")
	assert.False(t, ok)
	assert.False(t, ds.Has("revenue"))
}

func TestProfileDataset(t *testing.T) {
	n := 20
	names := []string{"good", "noise", "close_price"}
	cols := map[string][]float64{"good": make([]float64, n), "noise": make([]float64, n), "close_price": make([]float64, n)}
	for i := 0; i < n; i++ {
		cols["good"][i] = float64(i)
		cols["noise"][i] = float64((i * 7) % 5)
		cols["close_price"][i] = 2*float64(i) - 1
	}
	cols["noise"][3] = 500
	ds, err := New("p.csv", "close_price", names, cols)
	require.NoError(t, err)

	p := ProfileDataset(ds, ProfileOptions{})
	require.Len(t, p.Cols, 3)
	require.NotEmpty(t, p.Corr)
	assert.Equal(t, "good", p.Corr[0].A)
	assert.InDelta(t, 1.0, p.Corr[0].R, 1e-12)
	assert.Equal(t, 1, p.Cols[1].OutliersCount)
	assert.Equal(t, 1, p.Cols[2].NonPositive)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "non-positive")

	md := p.Markdown()
	assert.True(t, strings.HasPrefix(md, "[DATASET PROFILE]"))
	assert.Contains(t, md, "[CORRELATIONS WITH RESPONSE]")
}
