package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Pair is a pairwise product term. A == B encodes a squared term.
type Pair struct {
	A, B string
}

// NewPair returns the pair in canonical (lexical) order.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Name is the term label used for coefficients: "a:b" or "a^2".
func (p Pair) Name() string {
	if p.A == p.B {
		return p.A + "^2"
	}
	return p.A + ":" + p.B
}

// Squared reports whether the pair encodes a squared term.
func (p Pair) Squared() bool { return p.A == p.B }

// Involves reports whether the pair references the predictor.
func (p Pair) Involves(name string) bool { return p.A == name || p.B == name }

// ParsePair parses "a:b", "a*b" or "a^2".
func ParsePair(s string) (Pair, error) {
	s = strings.TrimSpace(s)
	if base, ok := strings.CutSuffix(s, "^2"); ok && strings.TrimSpace(base) != "" {
		b := strings.TrimSpace(base)
		return Pair{A: b, B: b}, nil
	}
	for _, sep := range []string{":", "*"} {
		if a, b, ok := strings.Cut(s, sep); ok {
			a, b = strings.TrimSpace(a), strings.TrimSpace(b)
			if a == "" || b == "" {
				break
			}
			return NewPair(a, b), nil
		}
	}
	return Pair{}, fmt.Errorf("invalid interaction term %q (use a:b or a^2)", s)
}

// Spec is an immutable model specification: a response, an ordered set of
// main-effect predictors and optional pairwise terms. Every derivation
// returns a new Spec carrying its own ID and the ID of the spec it came from.
type Spec struct {
	id           string
	parent       string
	response     string
	predictors   []string
	interactions []Pair
}

// NewSpec builds a spec, dropping duplicate predictors and pairs while
// keeping first-seen order.
func NewSpec(response string, predictors []string, interactions ...Pair) Spec {
	return derive("", response, predictors, interactions)
}

func derive(parent, response string, predictors []string, interactions []Pair) Spec {
	s := Spec{id: uuid.NewString(), parent: parent, response: response}
	seen := map[string]struct{}{}
	for _, p := range predictors {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		s.predictors = append(s.predictors, p)
	}
	seenPair := map[Pair]struct{}{}
	for _, p := range interactions {
		p = NewPair(p.A, p.B)
		if _, ok := seenPair[p]; ok {
			continue
		}
		seenPair[p] = struct{}{}
		s.interactions = append(s.interactions, p)
	}
	return s
}

func (s Spec) ID() string       { return s.id }
func (s Spec) Parent() string   { return s.parent }
func (s Spec) Response() string { return s.response }

// Predictors returns a copy of the main-effect predictor names.
func (s Spec) Predictors() []string {
	out := make([]string, len(s.predictors))
	copy(out, s.predictors)
	return out
}

// Interactions returns a copy of the pairwise terms.
func (s Spec) Interactions() []Pair {
	out := make([]Pair, len(s.interactions))
	copy(out, s.interactions)
	return out
}

// Terms lists every model term (main effects first, then pairs); the
// intercept is implicit.
func (s Spec) Terms() []string {
	out := make([]string, 0, len(s.predictors)+len(s.interactions))
	out = append(out, s.predictors...)
	for _, p := range s.interactions {
		out = append(out, p.Name())
	}
	return out
}

// NumParams is the number of estimated coefficients including the intercept.
func (s Spec) NumParams() int { return len(s.predictors) + len(s.interactions) + 1 }

// Columns lists every dataset column the spec reads, response excluded.
func (s Spec) Columns() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, p := range s.predictors {
		add(p)
	}
	for _, p := range s.interactions {
		add(p.A)
		add(p.B)
	}
	return out
}

// HasTerm reports whether the term label is part of the model.
func (s Spec) HasTerm(term string) bool {
	for _, t := range s.Terms() {
		if t == term {
			return true
		}
	}
	return false
}

// Pair returns the pairwise term with the given label.
func (s Spec) Pair(term string) (Pair, bool) {
	for _, p := range s.interactions {
		if p.Name() == term {
			return p, true
		}
	}
	return Pair{}, false
}

// Without removes a term. Removing a main effect also removes every pair
// that references it.
func (s Spec) Without(term string) Spec {
	preds := make([]string, 0, len(s.predictors))
	for _, p := range s.predictors {
		if p != term {
			preds = append(preds, p)
		}
	}
	pairs := make([]Pair, 0, len(s.interactions))
	for _, p := range s.interactions {
		if p.Name() == term || p.Involves(term) {
			continue
		}
		pairs = append(pairs, p)
	}
	return derive(s.id, s.response, preds, pairs)
}

// WithPredictor appends a main effect.
func (s Spec) WithPredictor(name string) Spec {
	return derive(s.id, s.response, append(s.Predictors(), name), s.interactions)
}

// WithInteractions appends pairwise terms.
func (s Spec) WithInteractions(pairs ...Pair) Spec {
	return derive(s.id, s.response, s.predictors, append(s.Interactions(), pairs...))
}

// WithResponse returns the same terms regressed on another response column.
func (s Spec) WithResponse(response string) Spec {
	return derive(s.id, response, s.predictors, s.interactions)
}

// String renders the spec as an R-style formula.
func (s Spec) String() string {
	terms := s.Terms()
	if len(terms) == 0 {
		return s.response + " ~ 1"
	}
	return s.response + " ~ " + strings.Join(terms, " + ")
}

type specJSON struct {
	ID           string   `json:"id" yaml:"id"`
	Parent       string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Response     string   `json:"response" yaml:"response"`
	Predictors   []string `json:"predictors" yaml:"predictors"`
	Interactions []string `json:"interactions,omitempty" yaml:"interactions,omitempty"`
	Formula      string   `json:"formula" yaml:"formula"`
}

func (s Spec) view() specJSON {
	v := specJSON{ID: s.id, Parent: s.parent, Response: s.response, Predictors: s.Predictors(), Formula: s.String()}
	for _, p := range s.interactions {
		v.Interactions = append(v.Interactions, p.Name())
	}
	return v
}

// MarshalJSON exposes the spec to presentation layers.
func (s Spec) MarshalJSON() ([]byte, error) { return json.Marshal(s.view()) }

// MarshalYAML exposes the spec to presentation layers.
func (s Spec) MarshalYAML() (interface{}, error) { return s.view(), nil }
