package transform

import (
	"fmt"
	"math"
	"sort"

	"github.com/creasty/defaults"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/diagnostics"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// Options controls the refinement loop.
type Options struct {
	Grid       Grid
	Thresholds diagnostics.Thresholds
	MaxSteps   int `default:"50" validate:"gt=0"`

	Logger *zerolog.Logger `validate:"-"`
}

// DefaultOptions returns the default grid, thresholds and a 50 step cap.
func DefaultOptions() Options {
	var o Options
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	return o
}

// Validate checks the grid, thresholds and step cap.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid refine options: %w", err)
	}
	return nil
}

func (o Options) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// Removal reasons.
const (
	ReasonMulticollinearity = "multicollinearity"
	ReasonInsignificant     = "insignificant"
)

// Step is one accepted removal.
type Step struct {
	Removed       string  `json:"removed" yaml:"removed"`
	Reason        string  `json:"reason" yaml:"reason"`
	ModelID       string  `json:"model_id" yaml:"model_id"`
	Failures      int     `json:"failures" yaml:"failures"`
	Insignificant int     `json:"insignificant" yaml:"insignificant"`
	MaxVIF        float64 `json:"max_vif" yaml:"max_vif"`
}

// Refinement is the result of Refine. Final may still fail some checks;
// Converged reports whether every check passed with every term significant.
type Refinement struct {
	Lambda        float64
	Profile       *Profile
	Initial       *model.Fitted
	InitialReport *diagnostics.Report
	Steps         []Step
	Final         *model.Fitted
	FinalReport   *diagnostics.Report
	Converged     bool
	StopReason    string
}

// Refine picks lambda by profile likelihood and then runs RefineAt.
func Refine(ds *dataset.Dataset, spec model.Spec, opt Options) (*Refinement, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	prof, err := SearchLambda(ds, spec, opt.Grid)
	if err != nil {
		return nil, err
	}
	opt.logger().Info().Str("dataset", ds.Name()).Float64("lambda", prof.Lambda).Float64("loglik", prof.LogLik).Msg("box-cox lambda selected")
	r, err := RefineAt(ds, spec, prof.Lambda, opt)
	if err != nil {
		return nil, err
	}
	r.Profile = prof
	return r, nil
}

// score orders states: fewer failed checks, then fewer insignificant
// terms, then lower max VIF.
type score struct {
	failures      int
	insignificant int
	maxVIF        float64
}

func (a score) better(b score) bool {
	if a.failures != b.failures {
		return a.failures < b.failures
	}
	if a.insignificant != b.insignificant {
		return a.insignificant < b.insignificant
	}
	return a.maxVIF < b.maxVIF
}

type state struct {
	spec   model.Spec
	fm     *model.Fitted
	report *diagnostics.Report
	insig  []model.Coefficient
}

func (s state) score() score {
	v := s.report.MaxVIF()
	if math.IsInf(v, 1) {
		v = math.MaxFloat64
	}
	return score{failures: len(s.report.Failures()), insignificant: len(s.insig), maxVIF: v}
}

// RefineAt fits the transformed response at a fixed lambda and removes
// collinear or insignificant terms one at a time while each removal
// improves the report. It stops when every check passes with every term
// significant, when no removal improves, when one term is left, or after
// MaxSteps removals.
func RefineAt(ds *dataset.Dataset, spec model.Spec, lambda float64, opt Options) (*Refinement, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	eval := func(s model.Spec) (state, error) {
		fm, err := FitTransformed(ds, s, lambda)
		if err != nil {
			return state{}, err
		}
		return state{
			spec:   s,
			fm:     fm,
			report: diagnostics.Diagnose(fm, opt.Thresholds),
			insig:  diagnostics.Insignificant(fm, opt.Thresholds.Alpha),
		}, nil
	}
	cur, err := eval(spec)
	if err != nil {
		return nil, err
	}
	r := &Refinement{Lambda: lambda, Initial: cur.fm, InitialReport: cur.report}
	log := opt.logger()
	for {
		if cur.report.AllPass() && len(cur.insig) == 0 {
			r.Converged, r.StopReason = true, "all checks pass"
			break
		}
		if len(r.Steps) >= opt.MaxSteps {
			r.StopReason = fmt.Sprintf("reached %d steps", opt.MaxSteps)
			break
		}
		if len(cur.spec.Terms()) <= 1 {
			r.StopReason = "one term left"
			break
		}
		var next *state
		var step Step
		for _, c := range removalCandidates(cur, opt.Thresholds) {
			cand, err := eval(cur.spec.Without(c.term))
			if err != nil {
				return nil, fmt.Errorf("refit without %s: %w", c.term, err)
			}
			if cand.score().better(cur.score()) {
				next = &cand
				step = Step{
					Removed:       c.term,
					Reason:        c.reason,
					ModelID:       cand.fm.ID(),
					Failures:      len(cand.report.Failures()),
					Insignificant: len(cand.insig),
					MaxVIF:        cand.report.MaxVIF(),
				}
				break
			}
		}
		if next == nil {
			r.StopReason = "no removal improves the report"
			break
		}
		log.Debug().Str("term", step.Removed).Str("reason", step.Reason).Int("failures", step.Failures).Msg("removed term")
		r.Steps = append(r.Steps, step)
		cur = *next
	}
	r.Final, r.FinalReport = cur.fm, cur.report
	log.Info().Str("dataset", ds.Name()).Int("steps", len(r.Steps)).Bool("converged", r.Converged).Str("stop", r.StopReason).Msg("refinement finished")
	return r, nil
}

type candidate struct {
	term   string
	reason string
}

// removalCandidates lists terms at or above the VIF threshold (highest
// first) when multicollinearity fails, followed by insignificant terms
// (least significant first).
func removalCandidates(s state, t diagnostics.Thresholds) []candidate {
	var out []candidate
	seen := map[string]bool{}
	if c, ok := s.report.Check(diagnostics.Multicollinearity); ok && !c.Pass {
		vals := append([]diagnostics.TermValue(nil), c.Values...)
		sort.SliceStable(vals, func(i, j int) bool { return vals[i].Value > vals[j].Value })
		for _, v := range vals {
			if v.Value >= t.MaxVIF && !seen[v.Term] {
				seen[v.Term] = true
				out = append(out, candidate{term: v.Term, reason: ReasonMulticollinearity})
			}
		}
	}
	for _, c := range s.insig {
		if !seen[c.Term] {
			seen[c.Term] = true
			out = append(out, candidate{term: c.Term, reason: ReasonInsignificant})
		}
	}
	return out
}
