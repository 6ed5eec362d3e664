package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// BreuschPaganResult is the studentised (Koenker) Breusch-Pagan test.
type BreuschPaganResult struct {
	LM     float64
	DOF    int
	PValue float64
}

// BreuschPagan regresses the squared residuals on the model design and
// returns LM = n·R², chi-squared with rank-1 degrees of freedom under
// homoscedasticity. Returns nil when the design has no regressors besides
// the intercept.
func BreuschPagan(x mat.Matrix, resid []float64) *BreuschPaganResult {
	n := len(resid)
	if n < 3 {
		return nil
	}
	e2 := make([]float64, n)
	for i, r := range resid {
		e2[i] = r * r
	}
	sol, err := model.LeastSquares(x, e2)
	if err != nil {
		return nil
	}
	dof := sol.Rank - 1
	if dof < 1 {
		return nil
	}
	// Equal-magnitude residuals leave only rounding noise in e²; treat as constant.
	var lm float64
	if tss := centred(e2); tss > 1e-12*sumSquares(e2) {
		lm = math.Max(0, float64(n)*(1-sol.RSS/tss))
	}
	return &BreuschPaganResult{
		LM:     lm,
		DOF:    dof,
		PValue: distuv.ChiSquared{K: float64(dof)}.Survival(lm),
	}
}

func centred(v []float64) float64 {
	var mean float64
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	var ss float64
	for _, x := range v {
		ss += (x - mean) * (x - mean)
	}
	return ss
}
