// Package terms expands a base model with pairwise products and squared
// predictors and prunes the ones that are not significant.
package terms

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// DefaultAlpha is the significance level used when none is configured.
const DefaultAlpha = 0.05

// Elimination records one interaction dropped by CheckInteractions.
type Elimination struct {
	Term   string  `json:"term" yaml:"term"`
	PValue float64 `json:"p_value" yaml:"p_value"`
}

// Exploration is the outcome of a term search.
type Exploration struct {
	Spec    model.Spec
	Dropped []Elimination
	Kept    []string
}

// AllPairs returns every pairwise product of the predictors, i < j.
func AllPairs(predictors []string) []model.Pair {
	var out []model.Pair
	for i := 0; i < len(predictors); i++ {
		for j := i + 1; j < len(predictors); j++ {
			out = append(out, model.NewPair(predictors[i], predictors[j]))
		}
	}
	return out
}

// CheckInteractions fits base plus every pairwise product of its predictors,
// then repeatedly drops the product with the highest p-value above alpha
// and refits, until every remaining product is significant or none remain.
// Main effects and squared terms already in base are never dropped.
func CheckInteractions(ds *dataset.Dataset, base model.Spec, alpha float64) (*Exploration, error) {
	candidates := map[string]bool{}
	pairs := AllPairs(base.Predictors())
	for _, p := range pairs {
		if !base.HasTerm(p.Name()) {
			candidates[p.Name()] = true
		}
	}
	spec := base.WithInteractions(pairs...)
	ex := &Exploration{}
	for {
		fm, err := model.Fit(ds, spec)
		if err != nil {
			return nil, fmt.Errorf("interaction model: %w", err)
		}
		worst, worstP := "", math.Inf(-1)
		for _, pr := range spec.Interactions() {
			if pr.Squared() || !candidates[pr.Name()] {
				continue
			}
			p := fm.PValue(pr.Name())
			if math.IsNaN(p) {
				p = math.Inf(1)
			}
			if p > worstP {
				worst, worstP = pr.Name(), p
			}
		}
		if worst == "" || !(worstP > alpha) {
			break
		}
		ex.Dropped = append(ex.Dropped, Elimination{Term: worst, PValue: worstP})
		spec = spec.Without(worst)
	}
	ex.Spec = spec
	for _, pr := range spec.Interactions() {
		if candidates[pr.Name()] {
			ex.Kept = append(ex.Kept, pr.Name())
		}
	}
	return ex, nil
}

// CheckCurvature fits base plus the square of each predictor in turn and
// keeps the squared terms whose p-value is below alpha. Squares that are
// linearly dependent on the other terms (binary predictors) are dropped.
func CheckCurvature(ds *dataset.Dataset, base model.Spec, alpha float64) (*Exploration, error) {
	ex := &Exploration{}
	var keep []model.Pair
	for _, x := range base.Predictors() {
		sq := model.Pair{A: x, B: x}
		if base.HasTerm(sq.Name()) {
			continue
		}
		fm, err := model.Fit(ds, base.WithInteractions(sq))
		if err != nil {
			return nil, fmt.Errorf("curvature of %s: %w", x, err)
		}
		p := fm.PValue(sq.Name())
		if fm.Rank() < fm.Spec().NumParams() {
			// the square is aliased with the intercept or another term
			p = math.NaN()
		}
		if p < alpha {
			keep = append(keep, sq)
			ex.Kept = append(ex.Kept, sq.Name())
			continue
		}
		ex.Dropped = append(ex.Dropped, Elimination{Term: sq.Name(), PValue: p})
	}
	ex.Spec = base.WithInteractions(keep...)
	return ex, nil
}
