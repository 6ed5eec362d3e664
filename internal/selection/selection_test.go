package selection

import (
	"errors"
	"math/bits"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

func walsh(n, k int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
		if bits.OnesCount(uint(i&k))%2 == 1 {
			out[i] = -1
		}
	}
	return out
}

// twoSignals has four orthogonal predictors of which only a and b matter.
func twoSignals(t *testing.T) *dataset.Dataset {
	t.Helper()
	const n = 16
	a, b, c, d := walsh(n, 1), walsh(n, 2), walsh(n, 4), walsh(n, 8)
	noise := walsh(n, 3)
	y := make([]float64, n)
	for i := range y {
		y[i] = 5 + 0.5*a[i] + 0.3*b[i] + 0.2*noise[i]
	}
	ds, err := dataset.New("signals", "y", []string{"a", "b", "c", "d", "y"},
		map[string][]float64{"a": a, "b": b, "c": c, "d": d, "y": y})
	require.NoError(t, err)
	return ds
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 0.05, o.Enter)
	assert.Equal(t, 0.1, o.Remove)
	assert.Equal(t, 100, o.MaxSteps)
	require.NoError(t, o.Validate())
	o.Remove = 2
	assert.Error(t, o.Validate())
}

func TestSelect_AllStrategiesAgree(t *testing.T) {
	ds := twoSignals(t)
	c, err := Select(ds, "y", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, c.Forward.Spec.Predictors())
	assert.ElementsMatch(t, []string{"a", "b"}, c.Backward.Spec.Predictors())
	assert.Equal(t, []string{"a", "b"}, c.Bidirectional.Spec.Predictors())
	assert.ElementsMatch(t, []string{"a", "b"}, c.Common().Predictors())

	require.Len(t, c.Forward.Steps, 2)
	assert.Equal(t, "add", c.Forward.Steps[0].Action)
	assert.Equal(t, "a", c.Forward.Steps[0].Term)
	for _, s := range c.Backward.Steps {
		assert.Equal(t, "remove", s.Action)
		assert.Contains(t, []string{"c", "d"}, s.Term)
	}
}

func TestSelect_PredictorsComeFromDataset(t *testing.T) {
	ds := twoSignals(t)
	c, err := Select(ds, "y", DefaultOptions())
	require.NoError(t, err)
	declared := ds.Predictors()
	for _, r := range []Result{c.Forward, c.Backward, c.Bidirectional} {
		for _, p := range r.Spec.Predictors() {
			assert.Contains(t, declared, p, r.Strategy)
		}
	}
}

func TestBackward_RemoveThresholdExtremes(t *testing.T) {
	ds := twoSignals(t)

	keepAll := DefaultOptions()
	keepAll.Remove = 1.0
	r, err := RunBackward(ds, keepAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, r.Spec.Predictors())
	assert.Empty(t, r.Steps)

	dropAll := DefaultOptions()
	dropAll.Remove = 0.0
	r, err = RunBackward(ds, dropAll)
	require.NoError(t, err)
	assert.Empty(t, r.Spec.Predictors())
	assert.Len(t, r.Steps, 4)
}

func TestForward_Divergence(t *testing.T) {
	ds := twoSignals(t)
	opt := DefaultOptions()
	opt.MaxSteps = 1
	_, err := RunForward(ds, opt)
	var div *SelectionDivergenceError
	require.True(t, errors.As(err, &div), "got %v", err)
	assert.Equal(t, Forward, div.Strategy)
	assert.Equal(t, 1, div.Steps)
}

// maskedSignal has x1 = z1 + z2 + junk entering first on its own, then
// losing significance once x2 = z1 and x3 = z2 both join.
func maskedSignal(t *testing.T) *dataset.Dataset {
	t.Helper()
	const n = 32
	z1, z2, junk, noise := walsh(n, 1), walsh(n, 2), walsh(n, 4), walsh(n, 8)
	x1 := make([]float64, n)
	y := make([]float64, n)
	for i := range y {
		x1[i] = z1[i] + z2[i] + junk[i]
		y[i] = 50 + 10*z1[i] + 8*z2[i] + 0.2*junk[i] + noise[i]
	}
	ds, err := dataset.New("masked", "y", []string{"x1", "x2", "x3", "y"},
		map[string][]float64{"x1": x1, "x2": z1, "x3": z2, "y": y})
	require.NoError(t, err)
	return ds
}

func TestBidirectional_RemovedPredictorIsNotReadded(t *testing.T) {
	ds := maskedSignal(t)
	opt := DefaultOptions()
	opt.Enter = 0.5 // x1 re-qualifies at p≈0.3 once removed

	r, err := RunBidirectional(ds, opt)
	require.NoError(t, err)

	var trail []string
	for _, s := range r.Steps {
		trail = append(trail, s.Action+" "+s.Term)
	}
	assert.Equal(t, []string{"add x1", "add x2", "add x3", "remove x1"}, trail)
	assert.ElementsMatch(t, []string{"x2", "x3"}, r.Spec.Predictors())

	last := r.Steps[len(r.Steps)-1]
	assert.Greater(t, last.PValue, opt.Remove)
	assert.Less(t, last.PValue, opt.Enter)
}

func TestBidirectional_Divergence(t *testing.T) {
	opt := DefaultOptions()
	opt.Enter = 0.5
	opt.MaxSteps = 3
	r, err := RunBidirectional(maskedSignal(t), opt)
	var div *SelectionDivergenceError
	require.True(t, errors.As(err, &div), "got %v", err)
	assert.Equal(t, Bidirectional, div.Strategy)
	assert.Equal(t, 3, div.Steps)
	assert.Len(t, r.Steps, 3)
	assert.Equal(t, "add", r.Steps[2].Action)
}

func TestBackward_Divergence(t *testing.T) {
	opt := DefaultOptions()
	opt.Remove = 0.0
	opt.MaxSteps = 2
	_, err := RunBackward(twoSignals(t), opt)
	var div *SelectionDivergenceError
	require.True(t, errors.As(err, &div), "got %v", err)
	assert.Equal(t, Backward, div.Strategy)
	assert.Equal(t, 2, div.Steps)
}

func TestSelect_InsufficientData(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	build := func(p int) *dataset.Dataset {
		const n = 30
		names := []string{}
		cols := map[string][]float64{}
		y := make([]float64, n)
		for j := 0; j < p; j++ {
			name := "x" + strconv.Itoa(j)
			col := make([]float64, n)
			for i := range col {
				col[i] = rng.NormFloat64()
				y[i] += 0.1 * col[i]
			}
			names = append(names, name)
			cols[name] = col
		}
		for i := range y {
			y[i] += rng.NormFloat64()
		}
		cols["y"] = y
		ds, err := dataset.New("wide", "y", append(names, "y"), cols)
		require.NoError(t, err)
		return ds
	}

	_, err := Select(build(30), "y", DefaultOptions())
	var ide *model.InsufficientDataError
	require.True(t, errors.As(err, &ide), "got %v", err)
	assert.Equal(t, 30, ide.Observations)
	assert.Equal(t, 31, ide.Parameters)

	r, err := RunBackward(build(25), DefaultOptions())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(r.Spec.Predictors()), 25)
}

func TestIntersect(t *testing.T) {
	f := model.NewSpec("y", []string{"c", "a", "b"}, model.NewPair("a", "b"))
	b := model.NewSpec("y", []string{"a", "b", "d"}, model.NewPair("a", "b"))
	s := model.NewSpec("y", []string{"b", "a"})

	got := Intersect(f, b)
	assert.Equal(t, []string{"a", "b"}, got.Predictors())
	assert.Equal(t, []model.Pair{{A: "a", B: "b"}}, got.Interactions())

	got = Intersect(f, b, s)
	assert.Equal(t, []string{"a", "b"}, got.Predictors())
	assert.Empty(t, got.Interactions())
	assert.Equal(t, "y", got.Response())

	assert.Empty(t, Intersect(f, model.NewSpec("y", []string{"z"})).Predictors())
	assert.Equal(t, []string{"c", "a", "b"}, f.Predictors(), "inputs untouched")
}
