package diagnostics

import "math"

// CooksDistance returns D_i = e_i²/(p·s²) · h_i/(1-h_i)² for every
// observation, where p is the model rank and s² the residual variance.
// Observations with leverage 1 get +Inf. Returns nil without residual
// degrees of freedom.
func CooksDistance(resid, leverage []float64, rank int) []float64 {
	n := len(resid)
	df := n - rank
	if df < 1 || rank < 1 || len(leverage) != n {
		return nil
	}
	var rss float64
	for _, r := range resid {
		rss += r * r
	}
	out := make([]float64, n)
	if rss == 0 {
		return out
	}
	s2 := rss / float64(df)
	for i, e := range resid {
		h := leverage[i]
		if 1-h < 1e-12 {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = e * e / (float64(rank) * s2) * h / ((1 - h) * (1 - h))
	}
	return out
}
