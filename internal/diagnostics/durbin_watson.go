package diagnostics

// DurbinWatson returns Σ(e_t - e_{t-1})² / Σe_t², or NaN for fewer than two
// residuals or a perfect fit. Values near 2 indicate no first-order
// autocorrelation.
func DurbinWatson(resid []float64) float64 {
	var num, den float64
	for i, e := range resid {
		den += e * e
		if i > 0 {
			d := e - resid[i-1]
			num += d * d
		}
	}
	if len(resid) < 2 || den == 0 {
		return nan()
	}
	return num / den
}
