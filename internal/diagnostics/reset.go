package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// ResetResult is Ramsey's regression specification error test.
type ResetResult struct {
	F      float64
	DF1    int
	DF2    int
	PValue float64
}

// Reset augments the design with powers 2 and 3 of the fitted values and
// F-tests their joint contribution. Returns nil when the augmented model
// leaves no residual degrees of freedom.
func Reset(x mat.Matrix, y, fitted []float64, rss float64, rank int) *ResetResult {
	n, p := x.Dims()
	scale := 0.0
	for _, v := range fitted {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		scale = 1
	}
	aug := mat.NewDense(n, p+2, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			aug.Set(i, j, x.At(i, j))
		}
		f := fitted[i] / scale
		aug.Set(i, p, f*f)
		aug.Set(i, p+1, f*f*f)
	}
	sol, err := model.LeastSquares(aug, y)
	if err != nil {
		return nil
	}
	df1 := sol.Rank - rank
	df2 := n - sol.Rank
	if df1 < 1 || df2 < 1 {
		return nil
	}
	res := &ResetResult{DF1: df1, DF2: df2}
	gain := rss - sol.RSS
	switch {
	case gain <= rss*1e-12:
		res.F, res.PValue = 0, 1
	case sol.RSS == 0:
		res.F, res.PValue = math.Inf(1), 0
	default:
		res.F = (gain / float64(df1)) / (sol.RSS / float64(df2))
		res.PValue = distuv.F{D1: float64(df1), D2: float64(df2)}.Survival(res.F)
	}
	return res
}
