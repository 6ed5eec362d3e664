package transform

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// Grid is the bounded set of lambdas searched: Min, Min+Step, ..., <= Max.
type Grid struct {
	Min  float64 `default:"-10" validate:"gte=-100,lte=100"`
	Max  float64 `default:"10" validate:"gte=-100,lte=100"`
	Step float64 `default:"0.01" validate:"gt=0"`
}

// DefaultGrid searches [-10, 10] in steps of 0.01.
func DefaultGrid() Grid {
	var g Grid
	if err := defaults.Set(&g); err != nil {
		panic(err)
	}
	return g
}

var validate = validator.New()

// Validate rejects a non-positive step.
func (g Grid) Validate() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("invalid lambda grid: %w", err)
	}
	return nil
}

// Points enumerates the grid. It is empty when Max < Min.
func (g Grid) Points() []float64 {
	if g.Step <= 0 || g.Max < g.Min {
		return nil
	}
	k := int(math.Floor((g.Max-g.Min)/g.Step+1e-9)) + 1
	out := make([]float64, k)
	for i := range out {
		out[i] = g.Min + float64(i)*g.Step
	}
	return out
}

// zeroLambda is the width of the band treated as lambda = 0.
const zeroLambda = 1e-12

// BoxCox returns (y^λ - 1)/λ, or log(y) for λ = 0. Non-positive values map to NaN.
func BoxCox(y []float64, lambda float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		switch {
		case !(v > 0):
			out[i] = math.NaN()
		case math.Abs(lambda) < zeroLambda:
			out[i] = math.Log(v)
		default:
			out[i] = (math.Pow(v, lambda) - 1) / lambda
		}
	}
	return out
}

// Profile is the profile log-likelihood of the transform over a grid.
type Profile struct {
	Lambda float64
	LogLik float64
	Grid   []float64
	Values []float64 // NaN where the likelihood is not finite
}

// SearchLambda evaluates -n/2·log(RSS_λ/n) + (λ-1)·Σlog y for every grid
// point, with RSS_λ the residual sum of squares of the transformed response
// regressed on the spec's design, and returns the argmax.
func SearchLambda(ds *dataset.Dataset, spec model.Spec, g Grid) (*Profile, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	pts := g.Points()
	if len(pts) == 0 {
		return nil, &DegenerateTransformError{Min: g.Min, Max: g.Max, Reason: "empty grid"}
	}
	d, err := model.BuildDesign(ds, spec)
	if err != nil {
		return nil, err
	}
	proj, err := model.NewProjector(d.X)
	if err != nil {
		return nil, err
	}
	n := float64(d.Rows())
	var sumLog float64
	for _, v := range d.Y {
		sumLog += math.Log(v)
	}

	prof := &Profile{Grid: pts, Values: make([]float64, len(pts)), LogLik: math.Inf(-1), Lambda: math.NaN()}
	for i, lambda := range pts {
		ll := math.NaN()
		if !math.IsNaN(sumLog) && !math.IsInf(sumLog, 0) {
			rss := proj.RSS(BoxCox(d.Y, lambda))
			ll = -n/2*math.Log(rss/n) + (lambda-1)*sumLog
		}
		if math.IsInf(ll, 0) {
			ll = math.NaN()
		}
		prof.Values[i] = ll
		if !math.IsNaN(ll) && ll > prof.LogLik {
			prof.LogLik, prof.Lambda = ll, lambda
		}
	}
	if math.IsNaN(prof.Lambda) {
		reason := "likelihood is not finite at any grid point"
		if minResponse(d.Y) <= 0 {
			reason = fmt.Sprintf("response %s has non-positive values (min %g)", spec.Response(), minResponse(d.Y))
		}
		return nil, &DegenerateTransformError{Min: g.Min, Max: g.Max, Reason: reason}
	}
	return prof, nil
}

func minResponse(y []float64) float64 {
	m := math.Inf(1)
	for _, v := range y {
		m = math.Min(m, v)
	}
	return m
}

// Column is the name given to the transformed response.
func Column(response string) string { return "boxcox(" + response + ")" }

// FitTransformed fits the spec's terms on the Box-Cox transform of its
// response. The returned model's response is Column(spec.Response()).
func FitTransformed(ds *dataset.Dataset, spec model.Spec, lambda float64) (*model.Fitted, error) {
	y, ok := ds.Column(spec.Response())
	if !ok {
		return nil, fmt.Errorf("response %q not in dataset %s", spec.Response(), ds.Name())
	}
	name := Column(spec.Response())
	tds, err := ds.WithColumn(name, BoxCox(y, lambda))
	if err != nil {
		return nil, err
	}
	tds, err = tds.WithResponse(name)
	if err != nil {
		return nil, err
	}
	return model.Fit(tds, spec.WithResponse(name))
}
