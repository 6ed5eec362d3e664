package diagnostics

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// walsh returns column k of the n×n Sylvester-Hadamard matrix; distinct
// columns are exactly orthogonal and k > 0 columns sum to zero.
func walsh(n, k int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if bits.OnesCount(uint(i&k))%2 == 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

func fit(t *testing.T, cols map[string][]float64, predictors ...string) *model.Fitted {
	t.Helper()
	names := append(append([]string{}, predictors...), "y")
	ds, err := dataset.New("diag", "y", names, cols)
	require.NoError(t, err)
	fm, err := model.Fit(ds, model.NewSpec("y", predictors))
	require.NoError(t, err)
	return fm
}

func TestThresholds_DefaultsAndValidate(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 0.05, th.Alpha)
	assert.Equal(t, 10.0, th.MaxVIF)
	assert.Equal(t, 0.5, th.MaxCooksDistance)
	require.NoError(t, th.Validate())

	th.Alpha = 1.5
	assert.Error(t, th.Validate())
}

func TestShapiroWilk_SmallSamples(t *testing.T) {
	r := ShapiroWilk([]float64{1, 2, 3})
	require.NotNil(t, r)
	assert.InDelta(t, 1, r.W, 1e-12)
	assert.InDelta(t, 1, r.PValue, 1e-9)

	r = ShapiroWilk([]float64{4, 1, 2})
	require.NotNil(t, r)
	assert.InDelta(t, 0.9643, r.W, 1e-4)
	assert.InDelta(t, 0.6369, r.PValue, 1e-3)

	assert.Nil(t, ShapiroWilk([]float64{1, 2}))
	assert.Nil(t, ShapiroWilk([]float64{5, 5, 5, 5}))
}

func TestShapiroWilk_NormalVersusSkewed(t *testing.T) {
	const n = 50
	normal := make([]float64, n)
	skewed := make([]float64, n)
	for i := range normal {
		q := distuv.UnitNormal.Quantile((float64(i) + 0.5) / n)
		normal[i] = q
		skewed[i] = math.Exp(2 * q)
	}
	rn := ShapiroWilk(normal)
	require.NotNil(t, rn)
	assert.Greater(t, rn.W, 0.97)
	assert.Greater(t, rn.PValue, 0.5)

	rs := ShapiroWilk(skewed)
	require.NotNil(t, rs)
	assert.Less(t, rs.PValue, 0.001)
}

func TestDurbinWatson(t *testing.T) {
	assert.InDelta(t, 3, DurbinWatson([]float64{1, -1, 1, -1}), 1e-12)
	assert.True(t, math.IsNaN(DurbinWatson([]float64{0, 0})))
}

func TestCheckMulticollinearity_PerfectlyCollinearPair(t *testing.T) {
	const n = 16
	a := make([]float64, n)
	b := make([]float64, n)
	c := walsh(n, 3)
	noise := walsh(n, 5)
	y := make([]float64, n)
	for i := range a {
		a[i] = float64(i + 1)
		b[i] = 2 * a[i]
		y[i] = a[i] + 2*c[i] + 0.3*noise[i]
	}
	fm := fit(t, map[string][]float64{"A": a, "B": b, "C": c, "y": y}, "A", "B", "C")

	chk := CheckMulticollinearity(fm, DefaultThresholds())
	assert.False(t, chk.Pass)
	vif := map[string]float64{}
	for _, tv := range chk.Values {
		vif[tv.Term] = tv.Value
	}
	assert.Greater(t, vif["A"], 10.0)
	assert.Greater(t, vif["B"], 10.0)
	assert.InDelta(t, 1, vif["C"], 1e-6)

	rep := Diagnose(fm, DefaultThresholds())
	assert.Contains(t, rep.Failures(), Multicollinearity)
	assert.False(t, rep.AllPass())
}

func TestCheckOutliers_InfluentialPoint(t *testing.T) {
	x := make([]float64, 20)
	y := make([]float64, 20)
	for i := 0; i < 19; i++ {
		x[i] = float64(i + 1)
		y[i] = 10
	}
	x[19], y[19] = 50, 1000
	fm := fit(t, map[string][]float64{"x": x, "y": y}, "x")

	chk := CheckOutliers(fm, DefaultThresholds())
	assert.False(t, chk.Pass)
	require.Len(t, chk.Distances, 20)
	assert.InDelta(t, 25.7, chk.Distances[19], 0.1)
	assert.Equal(t, 19, chk.Flagged[len(chk.Flagged)-1])
	assert.Equal(t, chk.Distances[19], chk.Statistic)
}

func TestCheckOutliers_NoInfluentialPoint(t *testing.T) {
	const n = 16
	x := walsh(n, 1)
	e := walsh(n, 6)
	y := make([]float64, n)
	for i := range y {
		y[i] = 3 + 2*x[i] + 0.5*e[i]
	}
	fm := fit(t, map[string][]float64{"x": x, "y": y}, "x")
	chk := CheckOutliers(fm, DefaultThresholds())
	assert.True(t, chk.Pass)
	assert.Empty(t, chk.Flagged)
}

func TestCheckEqualVariance(t *testing.T) {
	const n = 40
	x := make([]float64, n)
	hetero := make([]float64, n)
	for i := range x {
		x[i] = float64(i + 1)
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		hetero[i] = 2 + x[i] + 0.5*x[i]*sign
	}
	fm := fit(t, map[string][]float64{"x": x, "y": hetero}, "x")
	chk := CheckEqualVariance(fm, DefaultThresholds())
	assert.False(t, chk.Pass)
	assert.Less(t, chk.PValue, 0.01)

	const m = 16
	w := walsh(m, 1)
	e := walsh(m, 6)
	homo := make([]float64, m)
	for i := range homo {
		homo[i] = 3 + 2*w[i] + 0.5*e[i]
	}
	fm = fit(t, map[string][]float64{"x": w, "y": homo}, "x")
	chk = CheckEqualVariance(fm, DefaultThresholds())
	assert.True(t, chk.Pass)
	assert.InDelta(t, 1, chk.PValue, 1e-9)
}

func TestCheckLinearity_Curvature(t *testing.T) {
	x := make([]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		x[i] = float64(i + 1)
		y[i] = x[i] * x[i]
	}
	fm := fit(t, map[string][]float64{"x": x, "y": y}, "x")
	chk := CheckLinearity(fm, DefaultThresholds())
	assert.False(t, chk.Pass)
	assert.Less(t, chk.PValue, 0.001)
}

func TestCheckIndependence_AlwaysPasses(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{1, 3, 2, 5, 4, 6}
	fm := fit(t, map[string][]float64{"x": x, "y": y}, "x")
	chk := CheckIndependence(fm, DefaultThresholds())
	assert.True(t, chk.Pass)
	assert.False(t, math.IsNaN(chk.Statistic))
}

func TestDiagnose_SaturatedFitSkipsResidualTests(t *testing.T) {
	fm := fit(t, map[string][]float64{
		"a": {1, 2, 4},
		"b": {3, 1, 2},
		"y": {1, 5, 2},
	}, "a", "b")
	require.Equal(t, 0, fm.DFResid())

	rep := Diagnose(fm, DefaultThresholds())
	for _, a := range []Assumption{Normality, EqualVariance, Linearity, Outliers} {
		c, ok := rep.Check(a)
		require.True(t, ok, a)
		assert.True(t, c.Pass, a)
		assert.Contains(t, c.Detail, "not computed", a)
		assert.True(t, math.IsNaN(c.Statistic), a)
	}
	assert.NotContains(t, rep.Failures(), Normality)
	assert.NotContains(t, rep.Failures(), EqualVariance)
}

func TestDiagnose_Idempotent(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	y := []float64{2.3, 4.1, 5.9, 8.4, 9.8, 12.5, 13.7, 16.2, 18.1, 19.6}
	fm := fit(t, map[string][]float64{"x": x, "y": y}, "x")

	a := Diagnose(fm, DefaultThresholds())
	b := Diagnose(fm, DefaultThresholds())
	require.Len(t, a.Checks, len(Assumptions))
	require.Equal(t, len(a.Checks), len(b.Checks))
	for i := range a.Checks {
		ca, cb := a.Checks[i], b.Checks[i]
		assert.Equal(t, ca.Assumption, Assumptions[i])
		assert.Equal(t, ca.Assumption, cb.Assumption)
		assert.Equal(t, ca.Pass, cb.Pass)
		assert.Equal(t, ca.Detail, cb.Detail)
		assert.Equal(t, math.Float64bits(ca.Statistic), math.Float64bits(cb.Statistic), ca.Assumption)
		assert.Equal(t, math.Float64bits(ca.PValue), math.Float64bits(cb.PValue), ca.Assumption)
		require.Equal(t, len(ca.Distances), len(cb.Distances))
		for j := range ca.Distances {
			assert.Equal(t, math.Float64bits(ca.Distances[j]), math.Float64bits(cb.Distances[j]))
		}
		require.Equal(t, len(ca.Values), len(cb.Values))
		for j := range ca.Values {
			assert.Equal(t, math.Float64bits(ca.Values[j].Value), math.Float64bits(cb.Values[j].Value))
		}
	}
	assert.Equal(t, a.ModelID, b.ModelID)
}

func TestInsignificant_OrdersByPValue(t *testing.T) {
	const n = 16
	a := walsh(n, 1)
	b := walsh(n, 2)
	c := walsh(n, 4)
	noise := walsh(n, 7)
	y := make([]float64, n)
	for i := range y {
		y[i] = 5 + 3*a[i] + 0.05*b[i] + 0.02*c[i] + 0.4*noise[i]
	}
	fm := fit(t, map[string][]float64{"a": a, "b": b, "c": c, "y": y}, "a", "b", "c")
	ins := Insignificant(fm, 0.05)
	require.Len(t, ins, 2)
	assert.Equal(t, "c", ins[0].Term)
	assert.Equal(t, "b", ins[1].Term)
}
