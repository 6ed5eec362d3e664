package diagnostics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ShapiroWilkResult is the outcome of a Shapiro-Wilk normality test.
type ShapiroWilkResult struct {
	W      float64
	PValue float64
	N      int
}

var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilk tests the null hypothesis that x was drawn from a normal
// distribution, using Royston's (1995) approximation for the coefficients
// and the p-value. It returns nil for fewer than 3 or more than 5000 values
// and for constant samples.
func ShapiroWilk(x []float64) *ShapiroWilkResult {
	n := len(x)
	if n < 3 || n > 5000 {
		return nil
	}
	xs := make([]float64, n)
	copy(xs, x)
	sort.Float64s(xs)
	if xs[n-1]-xs[0] < 1e-19 {
		return nil
	}

	a := swCoefficients(n)

	// W is the squared correlation between the ordered sample and the coefficients.
	var mean float64
	for _, v := range xs {
		mean += v
	}
	mean /= float64(n)
	var sax, ssx, ssa float64
	for i, v := range xs {
		d := v - mean
		sax += a[i] * d
		ssx += d * d
		ssa += a[i] * a[i]
	}
	w := sax * sax / (ssa * ssx)
	if w > 1 {
		w = 1
	}

	res := &ShapiroWilkResult{W: w, N: n}
	if n == 3 {
		const sixOverPi, piOverThree = 6 / math.Pi, math.Pi / 3
		res.PValue = math.Max(0, sixOverPi*(math.Asin(math.Sqrt(w))-piOverThree))
		return res
	}

	an := float64(n)
	y := math.Log(1 - w)
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			res.PValue = 1e-99
			return res
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, an)
		s = math.Exp(poly(swC4, an))
	} else {
		lx := math.Log(an)
		m = poly(swC5, lx)
		s = math.Exp(poly(swC6, lx))
	}
	res.PValue = distuv.Normal{Mu: m, Sigma: s}.Survival(y)
	return res
}

// swCoefficients returns the antisymmetric, unit-norm weights for the
// ordered sample.
func swCoefficients(n int) []float64 {
	a := make([]float64, n)
	half := n / 2
	if n == 3 {
		a[0], a[2] = -math.Sqrt(0.5), math.Sqrt(0.5)
		return a
	}
	an := float64(n)
	m := make([]float64, half)
	var summ2 float64
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)

	// m[i] < 0 in the lower half; weights there are negative too.
	lower := make([]float64, half)
	a1 := m[0]/ssumm2 - poly(swC1, rsn)
	first := 1
	var fac float64
	if n > 5 {
		a2 := m[1]/ssumm2 - poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		lower[1] = a2
		first = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	lower[0] = a1
	for i := first; i < half; i++ {
		lower[i] = m[i] / fac
	}
	for i := 0; i < half; i++ {
		a[i] = lower[i]
		a[n-1-i] = -lower[i]
	}
	return a
}

// poly evaluates c[0] + c[1]x + c[2]x² + ...
func poly(c []float64, x float64) float64 {
	var out float64
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}
	return out
}
