package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
	"github.com/KaramelBytes/regdiag-cli/internal/report"
)

// loadFlags are the dataset options shared by every command that reads a file.
type loadFlags struct {
	response   string
	drop       []string
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
	format     string
}

func (l *loadFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&l.response, "response", "r", "", "response column (overrides config)")
	f.StringSliceVar(&l.drop, "drop", nil, "additional columns to drop before modelling")
	f.StringVar(&l.delimiter, "delimiter", "", "CSV delimiter: ',', ';' or 'tab' (default by extension)")
	f.StringVar(&l.decimal, "decimal", "", "decimal separator: '.' or 'comma' (default auto)")
	f.StringVar(&l.thousands, "thousands", "", "thousands separator: ',', '.' or 'space'")
	f.StringVar(&l.sheetName, "sheet-name", "", "XLSX sheet name")
	f.IntVar(&l.sheetIndex, "sheet-index", 0, "XLSX sheet index, 1-based (used when --sheet-name is empty)")
	f.IntVar(&l.maxRows, "max-rows", 0, "limit rows read (overrides config)")
	f.StringVarP(&l.format, "format", "f", "", "report format: markdown|json|yaml (overrides config)")
}

func (l *loadFlags) options() (dataset.Options, error) {
	opt := config().LoaderOptions()
	if l.response != "" {
		opt.Response = l.response
	}
	opt.Drop = append(opt.Drop, l.drop...)
	if l.maxRows > 0 {
		opt.MaxRows = l.maxRows
	}
	switch l.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", l.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(l.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", l.decimal)
	}
	switch strings.ToLower(l.thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", l.thousands)
	}
	opt.SheetName = l.sheetName
	if l.sheetIndex > 0 {
		opt.SheetIndex = l.sheetIndex
	}
	return opt, nil
}

func (l *loadFlags) load(path string) (*dataset.Dataset, error) {
	opt, err := l.options()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dataset", ds.Name()).Int("rows", ds.Len()).Strs("predictors", ds.Predictors()).
		Strs("dropped", ds.Dropped()).Msg("dataset loaded")
	return ds, nil
}

func (l *loadFlags) reportFormat() (report.Format, error) {
	if l.format != "" {
		return report.ParseFormat(l.format)
	}
	return report.ParseFormat(config().ReportFormat)
}

func (l *loadFlags) print(w io.Writer, doc report.Document) error {
	f, err := l.reportFormat()
	if err != nil {
		return err
	}
	b, err := report.Render(doc, f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// specFlags describe a model by hand for diagnose and refine.
type specFlags struct {
	predictors   []string
	interactions []string
}

func (s *specFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&s.predictors, "predictors", "p", nil, "predictor columns (default: every numeric column)")
	f.StringSliceVarP(&s.interactions, "interactions", "i", nil, "interaction terms such as a:b or a^2")
}

func (s *specFlags) spec(ds *dataset.Dataset) (model.Spec, error) {
	unknown := func(name string) error {
		return fmt.Errorf("unknown predictor %q (columns: %s)", name, strings.Join(ds.Predictors(), ", "))
	}
	preds := ds.Predictors()
	if len(s.predictors) > 0 {
		preds = make([]string, 0, len(s.predictors))
		for _, p := range s.predictors {
			name, ok := ds.Resolve(p)
			if !ok {
				return model.Spec{}, unknown(p)
			}
			preds = append(preds, name)
		}
	}
	pairs := make([]model.Pair, 0, len(s.interactions))
	for _, raw := range s.interactions {
		pr, err := model.ParsePair(raw)
		if err != nil {
			return model.Spec{}, err
		}
		a, ok := ds.Resolve(pr.A)
		if !ok {
			return model.Spec{}, unknown(pr.A)
		}
		b, ok := ds.Resolve(pr.B)
		if !ok {
			return model.Spec{}, unknown(pr.B)
		}
		pairs = append(pairs, model.NewPair(a, b))
	}
	return model.NewSpec(ds.Response(), preds, pairs...), nil
}
