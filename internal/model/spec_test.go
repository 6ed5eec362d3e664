package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	cases := []struct {
		in   string
		want Pair
	}{
		{"b:a", Pair{"a", "b"}},
		{"a * b", Pair{"a", "b"}},
		{"debt^2", Pair{"debt", "debt"}},
	}
	for _, c := range cases {
		got, err := ParsePair(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
	for _, bad := range []string{"", "a", ":b", "^2"} {
		_, err := ParsePair(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "debt^2", Pair{"debt", "debt"}.Name())
}

func TestSpec_DerivationsDoNotMutate(t *testing.T) {
	base := NewSpec("y", []string{"a", "b", "c", "a"}, NewPair("a", "b"), NewPair("b", "a"))
	assert.Equal(t, []string{"a", "b", "c"}, base.Predictors())
	assert.Len(t, base.Interactions(), 1)
	assert.Equal(t, 4, base.NumParams())

	smaller := base.Without("a")
	assert.Equal(t, []string{"b", "c"}, smaller.Predictors())
	assert.Empty(t, smaller.Interactions(), "pairs referencing a removed predictor go with it")
	assert.Equal(t, base.ID(), smaller.Parent())
	assert.NotEqual(t, base.ID(), smaller.ID())

	assert.Equal(t, []string{"a", "b", "c"}, base.Predictors())
	assert.True(t, base.HasTerm("a:b"))

	preds := base.Predictors()
	preds[0] = "zzz"
	assert.Equal(t, "a", base.Predictors()[0])

	noPair := base.Without("a:b")
	assert.Equal(t, []string{"a", "b", "c"}, noPair.Predictors())
	assert.False(t, noPair.HasTerm("a:b"))
}

func TestSpec_StringAndJSON(t *testing.T) {
	s := NewSpec("close_price", []string{"assets", "debt"}, NewPair("debt", "debt"))
	assert.Equal(t, "close_price ~ assets + debt + debt^2", s.String())
	assert.Equal(t, "y ~ 1", NewSpec("y", nil).String())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(b, &v))
	assert.Equal(t, "close_price", v["response"])
	assert.Equal(t, []any{"debt^2"}, v["interactions"])
	assert.Equal(t, s.ID(), v["id"])
}

func TestSpec_Columns(t *testing.T) {
	s := NewSpec("y", []string{"a"}, NewPair("b", "c"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Columns())
	p, ok := s.Pair("b:c")
	require.True(t, ok)
	assert.Equal(t, Pair{"b", "c"}, p)
}
