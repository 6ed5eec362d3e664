package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// VIF computes the variance inflation factor of every non-intercept column
// of x (column 0 must be the intercept): 1/(1-R²) of the column regressed
// on all the others. Perfectly collinear columns get +Inf.
func VIF(x mat.Matrix) []float64 {
	n, p := x.Dims()
	if p < 2 {
		return nil
	}
	out := make([]float64, p-1)
	for j := 1; j < p; j++ {
		others := mat.NewDense(n, p-1, nil)
		target := make([]float64, n)
		for i := 0; i < n; i++ {
			target[i] = x.At(i, j)
			c := 0
			for k := 0; k < p; k++ {
				if k == j {
					continue
				}
				others.Set(i, c, x.At(i, k))
				c++
			}
		}
		sol, err := model.LeastSquares(others, target)
		if err != nil {
			out[j-1] = math.NaN()
			continue
		}
		tol := 1e-10 * sumSquares(target)
		if sol.RSS <= tol {
			out[j-1] = math.Inf(1)
			continue
		}
		r2 := model.RSquared(target, sol.RSS)
		out[j-1] = 1 / (1 - r2)
	}
	return out
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}
