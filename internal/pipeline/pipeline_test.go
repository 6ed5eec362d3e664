package pipeline

import (
	"errors"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/diagnostics"
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

func build(t *testing.T, y func(i int, a, b []float64) float64) *dataset.Dataset {
	t.Helper()
	const n = 32
	a, b, c, d := walsh(n, 1), walsh(n, 2), walsh(n, 4), walsh(n, 8)
	resp := make([]float64, n)
	for i := range resp {
		resp[i] = y(i, a, b)
	}
	ds, err := dataset.New("bs", "close_price", []string{"a", "b", "c", "d", "close_price"},
		map[string][]float64{"a": a, "b": b, "c": c, "d": d, "close_price": resp})
	require.NoError(t, err)
	return ds
}

func TestExecute_FullRun(t *testing.T) {
	noise := walsh(32, 7)
	extra := walsh(32, 16)
	ds := build(t, func(i int, a, b []float64) float64 {
		return 20 + 2*a[i] + 1.5*b[i] + 0.3*noise[i] + 0.2*extra[i]
	})
	cfg := DefaultConfig()
	cfg.Curvature = true
	run, err := Execute(ds, cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "bs", run.Dataset)
	assert.Equal(t, 32, run.Observations)
	assert.ElementsMatch(t, []string{"a", "b"}, run.Base.Predictors())
	require.NotNil(t, run.Curvature)
	assert.Empty(t, run.Curvature.Kept, "squares of ±1 predictors are aliased")
	require.NotNil(t, run.Interactions)
	assert.Empty(t, run.Interactions.Kept)
	assert.Equal(t, run.Base.Predictors(), run.Explored.Predictors())

	require.NotNil(t, run.Initial)
	require.NotNil(t, run.InitialReport)
	assert.Len(t, run.InitialReport.Checks, len(diagnostics.Assumptions))
	require.NotNil(t, run.Refinement)
	require.NotNil(t, run.Refinement.Final)
	assert.NotEqual(t, run.Initial.ID(), run.Refinement.Final.ID())
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestExecute_EmptyModel(t *testing.T) {
	noise := walsh(32, 7)
	ds := build(t, func(i int, _, _ []float64) float64 { return 5 + 0.3*noise[i] })
	_, err := Execute(ds, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyModel), "got %v", err)
}
