package model

import (
	"fmt"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// InterceptTerm labels the constant column of every design.
const InterceptTerm = "(Intercept)"

// Design is the complete-case design matrix for a spec.
type Design struct {
	X     *mat.Dense
	Y     []float64
	Terms []string // column labels, intercept first
}

// Rows returns the number of complete observations.
func (d *Design) Rows() int { return len(d.Y) }

// BuildDesign selects the complete cases for the spec's columns and builds
// the intercept, main-effect and product columns.
func BuildDesign(ds *dataset.Dataset, spec Spec) (*Design, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil dataset")
	}
	if !ds.Has(spec.Response()) {
		return nil, fmt.Errorf("response %q not in dataset %s", spec.Response(), ds.Name())
	}
	for _, c := range spec.Columns() {
		if !ds.Has(c) {
			return nil, fmt.Errorf("predictor %q not in dataset %s", c, ds.Name())
		}
		if c == spec.Response() {
			return nil, fmt.Errorf("predictor %q is the response", c)
		}
	}
	src := ds
	if ds.Response() != spec.Response() {
		var err error
		if src, err = ds.WithResponse(spec.Response()); err != nil {
			return nil, err
		}
	}
	cc, err := src.CompleteCases(spec.Columns())
	if err != nil {
		return nil, err
	}
	n := cc.Len()
	if n < spec.NumParams() {
		return nil, &InsufficientDataError{Observations: n, Parameters: spec.NumParams()}
	}

	cols := make([][]float64, 0, spec.NumParams()-1)
	for _, p := range spec.Predictors() {
		c, _ := cc.Column(p)
		cols = append(cols, c)
	}
	for _, pr := range spec.Interactions() {
		a, _ := cc.Column(pr.A)
		b, _ := cc.Column(pr.B)
		prod := make([]float64, n)
		for i := range prod {
			prod[i] = a[i] * b[i]
		}
		cols = append(cols, prod)
	}
	return &Design{
		X:     WithIntercept(n, cols...),
		Y:     cc.ResponseValues(),
		Terms: append([]string{InterceptTerm}, spec.Terms()...),
	}, nil
}
