package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var machEps = math.Nextafter(1, 2) - 1

// Solution is a least-squares solve of y on x through the pseudo-inverse, so
// rank-deficient designs (perfectly collinear predictors) still produce the
// minimum-norm estimate instead of failing.
type Solution struct {
	Beta      []float64
	Fitted    []float64
	Residuals []float64
	Leverage  []float64
	RSS       float64
	Rank      int
	xtxInv    *mat.Dense
}

// LeastSquares solves min ||y - x·b|| via a thin SVD.
func LeastSquares(x mat.Matrix, y []float64) (*Solution, error) {
	n, p := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("response has %d rows, design has %d", len(y), n)
	}
	if n == 0 || p == 0 {
		return nil, errors.New("empty design matrix")
	}
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("svd factorization did not converge")
	}
	sv := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := float64(max(n, p)) * sv[0] * machEps
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}

	uty := make([]float64, rank)
	for j := 0; j < rank; j++ {
		var acc float64
		for i := 0; i < n; i++ {
			acc += u.At(i, j) * y[i]
		}
		uty[j] = acc / sv[j]
	}
	beta := make([]float64, p)
	for k := 0; k < p; k++ {
		var acc float64
		for j := 0; j < rank; j++ {
			acc += v.At(k, j) * uty[j]
		}
		beta[k] = acc
	}

	xtxInv := mat.NewDense(p, p, nil)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			var acc float64
			for j := 0; j < rank; j++ {
				acc += v.At(a, j) * v.At(b, j) / (sv[j] * sv[j])
			}
			xtxInv.Set(a, b, acc)
			xtxInv.Set(b, a, acc)
		}
	}

	lev := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for j := 0; j < rank; j++ {
			acc += u.At(i, j) * u.At(i, j)
		}
		lev[i] = acc
	}

	var fv mat.VecDense
	fv.MulVec(x, mat.NewVecDense(p, beta))
	fitted := make([]float64, n)
	resid := make([]float64, n)
	var rss float64
	for i := 0; i < n; i++ {
		fitted[i] = fv.AtVec(i)
		resid[i] = y[i] - fitted[i]
		rss += resid[i] * resid[i]
	}
	return &Solution{
		Beta:      beta,
		Fitted:    fitted,
		Residuals: resid,
		Leverage:  lev,
		RSS:       rss,
		Rank:      rank,
		xtxInv:    xtxInv,
	}, nil
}

// RSquared returns the centred coefficient of determination of a solve.
func RSquared(y []float64, rss float64) float64 {
	tss := centredSS(y)
	if tss == 0 {
		return 0
	}
	return 1 - rss/tss
}

func centredSS(y []float64) float64 {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var ss float64
	for _, v := range y {
		d := v - mean
		ss += d * d
	}
	return ss
}

// WithIntercept returns a design whose first column is ones followed by cols.
func WithIntercept(n int, cols ...[]float64) *mat.Dense {
	x := mat.NewDense(n, len(cols)+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, c := range cols {
			x.Set(i, j+1, c[i])
		}
	}
	return x
}

// Projector projects many responses onto the column space of one design.
type Projector struct {
	u    *mat.Dense
	rank int
}

// NewProjector factorizes x once so that residuals of several responses
// against it cost one pass each.
func NewProjector(x mat.Matrix) (*Projector, error) {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return nil, errors.New("empty design matrix")
	}
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("svd factorization did not converge")
	}
	sv := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)
	tol := float64(max(n, p)) * sv[0] * machEps
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}
	return &Projector{u: &u, rank: rank}, nil
}

// Rank is the numerical rank of the design.
func (p *Projector) Rank() int { return p.rank }

// RSS returns the residual sum of squares of y after projection.
func (p *Projector) RSS(y []float64) float64 {
	n, _ := p.u.Dims()
	coef := make([]float64, p.rank)
	for j := 0; j < p.rank; j++ {
		var acc float64
		for i := 0; i < n; i++ {
			acc += p.u.At(i, j) * y[i]
		}
		coef[j] = acc
	}
	var rss float64
	for i := 0; i < n; i++ {
		r := y[i]
		for j := 0; j < p.rank; j++ {
			r -= p.u.At(i, j) * coef[j]
		}
		rss += r * r
	}
	return rss
}
