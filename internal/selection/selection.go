package selection

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// Strategy names a selection procedure.
type Strategy string

const (
	Forward       Strategy = "forward"
	Backward      Strategy = "backward"
	Bidirectional Strategy = "bidirectional"
)

// Options controls the significance-based strategies.
type Options struct {
	// Enter is the p-value below which an excluded predictor may be added.
	Enter float64 `default:"0.05" validate:"gte=0,lte=1"`
	// Remove is the p-value above which an included predictor is removed.
	// Higher values keep more terms: 1.0 keeps every predictor, 0.0 removes
	// every predictor with a positive p-value.
	Remove float64 `default:"0.1" validate:"gte=0,lte=1"`
	// MaxSteps caps the number of add/remove actions per strategy.
	MaxSteps int `default:"100" validate:"gt=0"`

	Logger *zerolog.Logger `validate:"-"`
}

// DefaultOptions returns enter 0.05, remove 0.1 and a cap of 100 steps.
func DefaultOptions() Options {
	var o Options
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	return o
}

var validate = validator.New()

// Validate checks the thresholds and step cap.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid selection options: %w", err)
	}
	return nil
}

func (o Options) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// Step records one action taken by a strategy.
type Step struct {
	Action string  `json:"action" yaml:"action"` // "add" or "remove"
	Term   string  `json:"term" yaml:"term"`
	PValue float64 `json:"p_value" yaml:"p_value"`
}

// Result is the spec a strategy settled on plus the path it took.
type Result struct {
	Strategy Strategy
	Spec     model.Spec
	Steps    []Step
}

// Candidates holds the outcome of all three strategies.
type Candidates struct {
	Forward       Result
	Backward      Result
	Bidirectional Result
}

// Common intersects the three candidate predictor sets.
func (c *Candidates) Common() model.Spec {
	return Intersect(c.Forward.Spec, c.Backward.Spec, c.Bidirectional.Spec)
}

// Select runs forward, backward and bidirectional selection of the
// dataset's predictors for the named response.
func Select(ds *dataset.Dataset, response string, opt Options) (*Candidates, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	src, err := ds.WithResponse(response)
	if err != nil {
		return nil, err
	}
	var c Candidates
	if c.Forward, err = RunForward(src, opt); err != nil {
		return nil, err
	}
	if c.Backward, err = RunBackward(src, opt); err != nil {
		return nil, err
	}
	if c.Bidirectional, err = RunBidirectional(src, opt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Intersect keeps the predictors present in every spec, in the order of the
// first one, together with the pairwise terms they all share.
func Intersect(specs ...model.Spec) model.Spec {
	if len(specs) == 0 {
		return model.NewSpec("", nil)
	}
	first := specs[0]
	var preds []string
	for _, p := range first.Predictors() {
		inAll := true
		for _, s := range specs[1:] {
			if !s.HasTerm(p) {
				inAll = false
				break
			}
		}
		if inAll {
			preds = append(preds, p)
		}
	}
	kept := map[string]bool{}
	for _, p := range preds {
		kept[p] = true
	}
	var pairs []model.Pair
	for _, pr := range first.Interactions() {
		if !kept[pr.A] || !kept[pr.B] {
			continue
		}
		inAll := true
		for _, s := range specs[1:] {
			if !s.HasTerm(pr.Name()) {
				inAll = false
				break
			}
		}
		if inAll {
			pairs = append(pairs, pr)
		}
	}
	return model.NewSpec(first.Response(), preds, pairs...)
}

// RunForward starts from the intercept-only model and adds the most
// significant excluded predictor while its p-value is below Enter.
func RunForward(ds *dataset.Dataset, opt Options) (Result, error) {
	r := Result{Strategy: Forward, Spec: model.NewSpec(ds.Response(), nil)}
	for {
		term, p, err := bestAddition(ds, r.Spec, opt.Enter, nil)
		if err != nil {
			return r, err
		}
		if term == "" {
			return r, nil
		}
		if len(r.Steps) >= opt.MaxSteps {
			return r, &SelectionDivergenceError{Strategy: Forward, Steps: len(r.Steps)}
		}
		r.Spec = r.Spec.WithPredictor(term)
		r.Steps = append(r.Steps, Step{Action: "add", Term: term, PValue: p})
		opt.logger().Debug().Str("strategy", string(Forward)).Str("term", term).Float64("p", p).Msg("add")
	}
}

// RunBackward starts from the full additive model and removes the least
// significant predictor while its p-value is above Remove.
func RunBackward(ds *dataset.Dataset, opt Options) (Result, error) {
	r := Result{Strategy: Backward, Spec: model.NewSpec(ds.Response(), ds.Predictors())}
	for len(r.Spec.Predictors()) > 0 {
		term, p, err := worstPredictor(ds, r.Spec)
		if err != nil {
			return r, err
		}
		if !(p > opt.Remove) {
			break
		}
		if len(r.Steps) >= opt.MaxSteps {
			return r, &SelectionDivergenceError{Strategy: Backward, Steps: len(r.Steps)}
		}
		r.Spec = r.Spec.Without(term)
		r.Steps = append(r.Steps, Step{Action: "remove", Term: term, PValue: p})
		opt.logger().Debug().Str("strategy", string(Backward)).Str("term", term).Float64("p", p).Msg("remove")
	}
	return r, nil
}

// RunBidirectional alternates a forward step with a backward-elimination
// pass. A predictor removed by the preceding pass may not be re-added by
// the next forward step.
func RunBidirectional(ds *dataset.Dataset, opt Options) (Result, error) {
	r := Result{Strategy: Bidirectional, Spec: model.NewSpec(ds.Response(), nil)}
	removed := map[string]bool{}
	for {
		term, p, err := bestAddition(ds, r.Spec, opt.Enter, removed)
		if err != nil {
			return r, err
		}
		if term == "" {
			return r, nil
		}
		if len(r.Steps) >= opt.MaxSteps {
			return r, &SelectionDivergenceError{Strategy: Bidirectional, Steps: len(r.Steps)}
		}
		r.Spec = r.Spec.WithPredictor(term)
		r.Steps = append(r.Steps, Step{Action: "add", Term: term, PValue: p})
		opt.logger().Debug().Str("strategy", string(Bidirectional)).Str("term", term).Float64("p", p).Msg("add")

		removed = map[string]bool{}
		for len(r.Spec.Predictors()) > 0 {
			worst, wp, err := worstPredictor(ds, r.Spec)
			if err != nil {
				return r, err
			}
			if !(wp > opt.Remove) {
				break
			}
			if len(r.Steps) >= opt.MaxSteps {
				return r, &SelectionDivergenceError{Strategy: Bidirectional, Steps: len(r.Steps)}
			}
			r.Spec = r.Spec.Without(worst)
			r.Steps = append(r.Steps, Step{Action: "remove", Term: worst, PValue: wp})
			removed[worst] = true
			opt.logger().Debug().Str("strategy", string(Bidirectional)).Str("term", worst).Float64("p", wp).Msg("remove")
		}
	}
}

// bestAddition fits spec+x for every eligible excluded predictor x and
// returns the one with the smallest p-value below enter, or "".
func bestAddition(ds *dataset.Dataset, spec model.Spec, enter float64, skip map[string]bool) (string, float64, error) {
	best, bestP := "", math.Inf(1)
	for _, x := range ds.Predictors() {
		if spec.HasTerm(x) || skip[x] {
			continue
		}
		fm, err := model.Fit(ds, spec.WithPredictor(x))
		if err != nil {
			return "", 0, fmt.Errorf("fit with %s: %w", x, err)
		}
		p := fm.PValue(x)
		if math.IsNaN(p) {
			continue
		}
		if p < bestP {
			best, bestP = x, p
		}
	}
	if best == "" || !(bestP < enter) {
		return "", 0, nil
	}
	return best, bestP, nil
}

// worstPredictor returns the included predictor with the largest p-value;
// a coefficient that cannot be estimated counts as the worst.
func worstPredictor(ds *dataset.Dataset, spec model.Spec) (string, float64, error) {
	fm, err := model.Fit(ds, spec)
	if err != nil {
		return "", 0, fmt.Errorf("fit %s: %w", spec, err)
	}
	worst, worstP := "", math.Inf(-1)
	for _, x := range spec.Predictors() {
		p := fm.PValue(x)
		if math.IsNaN(p) {
			return x, math.Inf(1), nil
		}
		if p > worstP {
			worst, worstP = x, p
		}
	}
	return worst, worstP, nil
}
