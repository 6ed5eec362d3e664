// Package report turns pipeline artifacts into serialisable views and
// renders them as Markdown, JSON or YAML.
package report

import (
	"math"
	"time"

	"github.com/KaramelBytes/regdiag-cli/internal/diagnostics"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
	"github.com/KaramelBytes/regdiag-cli/internal/pipeline"
	"github.com/KaramelBytes/regdiag-cli/internal/selection"
	"github.com/KaramelBytes/regdiag-cli/internal/terms"
	"github.com/KaramelBytes/regdiag-cli/internal/transform"
)

// num maps NaN and ±Inf to nil so the value survives JSON encoding.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// CoefView is one row of the coefficient table.
type CoefView struct {
	Term     string   `json:"term" yaml:"term"`
	Estimate *float64 `json:"estimate" yaml:"estimate"`
	StdError *float64 `json:"std_error" yaml:"std_error"`
	TValue   *float64 `json:"t_value" yaml:"t_value"`
	PValue   *float64 `json:"p_value" yaml:"p_value"`
}

// FitView is a fitted model with its coefficient table.
type FitView struct {
	ModelID      string     `json:"model_id" yaml:"model_id"`
	SpecID       string     `json:"spec_id" yaml:"spec_id"`
	ParentSpecID string     `json:"parent_spec_id,omitempty" yaml:"parent_spec_id,omitempty"`
	Formula      string     `json:"formula" yaml:"formula"`
	Observations int        `json:"observations" yaml:"observations"`
	Rank         int        `json:"rank" yaml:"rank"`
	DFResid      int        `json:"df_residual" yaml:"df_residual"`
	RSquared     *float64   `json:"r_squared" yaml:"r_squared"`
	AdjRSquared  *float64   `json:"adj_r_squared" yaml:"adj_r_squared"`
	Sigma        *float64   `json:"sigma" yaml:"sigma"`
	FStatistic   *float64   `json:"f_statistic" yaml:"f_statistic"`
	FPValue      *float64   `json:"f_p_value" yaml:"f_p_value"`
	LogLik       *float64   `json:"log_likelihood" yaml:"log_likelihood"`
	AIC          *float64   `json:"aic" yaml:"aic"`
	Coefficients []CoefView `json:"coefficients" yaml:"coefficients"`
	Residuals    []*float64 `json:"residuals,omitempty" yaml:"residuals,omitempty"`
}

// NewFitView summarises fm; residuals are included when withResiduals is set.
func NewFitView(fm *model.Fitted, withResiduals bool) FitView {
	v := FitView{
		ModelID:      fm.ID(),
		SpecID:       fm.Spec().ID(),
		ParentSpecID: fm.Spec().Parent(),
		Formula:      fm.Spec().String(),
		Observations: fm.N(),
		Rank:         fm.Rank(),
		DFResid:      fm.DFResid(),
		RSquared:     num(fm.RSquared()),
		AdjRSquared:  num(fm.AdjRSquared()),
		Sigma:        num(fm.Sigma()),
		FStatistic:   num(fm.FStatistic()),
		FPValue:      num(fm.FPValue()),
		LogLik:       num(fm.LogLikelihood()),
		AIC:          num(fm.AIC()),
	}
	for _, c := range fm.Coefficients() {
		v.Coefficients = append(v.Coefficients, CoefView{
			Term: c.Term, Estimate: num(c.Estimate), StdError: num(c.StdError),
			TValue: num(c.TValue), PValue: num(c.PValue),
		})
	}
	if withResiduals {
		for _, r := range fm.Residuals() {
			v.Residuals = append(v.Residuals, num(r))
		}
	}
	return v
}

type TermVIF struct {
	Term string   `json:"term" yaml:"term"`
	VIF  *float64 `json:"vif" yaml:"vif"` // null when infinite
}

type CheckView struct {
	Assumption string    `json:"assumption" yaml:"assumption"`
	Pass       bool      `json:"pass" yaml:"pass"`
	Test       string    `json:"test" yaml:"test"`
	Statistic  *float64  `json:"statistic" yaml:"statistic"`
	PValue     *float64  `json:"p_value,omitempty" yaml:"p_value,omitempty"`
	Threshold  *float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Detail     string    `json:"detail" yaml:"detail"`
	VIF        []TermVIF `json:"vif,omitempty" yaml:"vif,omitempty"`
	Flagged    []int     `json:"flagged_observations,omitempty" yaml:"flagged_observations,omitempty"`
}

// DiagnosticsView is a diagnostic report.
type DiagnosticsView struct {
	ModelID  string      `json:"model_id" yaml:"model_id"`
	Formula  string      `json:"formula" yaml:"formula"`
	AllPass  bool        `json:"all_pass" yaml:"all_pass"`
	Failures []string    `json:"failures" yaml:"failures"`
	Checks   []CheckView `json:"checks" yaml:"checks"`
}

func NewDiagnosticsView(r *diagnostics.Report) DiagnosticsView {
	v := DiagnosticsView{ModelID: r.ModelID, Formula: r.Formula, AllPass: r.AllPass(), Failures: []string{}}
	for _, a := range r.Failures() {
		v.Failures = append(v.Failures, string(a))
	}
	for _, c := range r.Checks {
		cv := CheckView{
			Assumption: string(c.Assumption),
			Pass:       c.Pass,
			Test:       c.Test,
			Statistic:  num(c.Statistic),
			PValue:     num(c.PValue),
			Threshold:  num(c.Threshold),
			Detail:     c.Detail,
			Flagged:    c.Flagged,
		}
		for _, tv := range c.Values {
			cv.VIF = append(cv.VIF, TermVIF{Term: tv.Term, VIF: num(tv.Value)})
		}
		v.Checks = append(v.Checks, cv)
	}
	return v
}

type StepView struct {
	Action string   `json:"action" yaml:"action"`
	Term   string   `json:"term" yaml:"term"`
	PValue *float64 `json:"p_value" yaml:"p_value"`
}

type StrategyView struct {
	Strategy   string     `json:"strategy" yaml:"strategy"`
	Formula    string     `json:"formula" yaml:"formula"`
	Predictors []string   `json:"predictors" yaml:"predictors"`
	Steps      []StepView `json:"steps" yaml:"steps"`
}

// SelectionView is the outcome of the three strategies and their intersection.
type SelectionView struct {
	Dataset       string       `json:"dataset" yaml:"dataset"`
	Forward       StrategyView `json:"forward" yaml:"forward"`
	Backward      StrategyView `json:"backward" yaml:"backward"`
	Bidirectional StrategyView `json:"bidirectional" yaml:"bidirectional"`
	Common        []string     `json:"common" yaml:"common"`
}

func newStrategyView(r selection.Result) StrategyView {
	v := StrategyView{Strategy: string(r.Strategy), Formula: r.Spec.String(), Predictors: r.Spec.Predictors(), Steps: []StepView{}}
	for _, s := range r.Steps {
		v.Steps = append(v.Steps, StepView{Action: s.Action, Term: s.Term, PValue: num(s.PValue)})
	}
	return v
}

func NewSelectionView(dataset string, c *selection.Candidates) SelectionView {
	return SelectionView{
		Dataset:       dataset,
		Forward:       newStrategyView(c.Forward),
		Backward:      newStrategyView(c.Backward),
		Bidirectional: newStrategyView(c.Bidirectional),
		Common:        c.Common().Predictors(),
	}
}

type EliminationView struct {
	Term   string   `json:"term" yaml:"term"`
	PValue *float64 `json:"p_value" yaml:"p_value"`
}

type ExplorationView struct {
	Formula string            `json:"formula" yaml:"formula"`
	Kept    []string          `json:"kept" yaml:"kept"`
	Dropped []EliminationView `json:"dropped" yaml:"dropped"`
}

func newExplorationView(e *terms.Exploration) *ExplorationView {
	if e == nil {
		return nil
	}
	v := &ExplorationView{Formula: e.Spec.String(), Kept: append([]string{}, e.Kept...), Dropped: []EliminationView{}}
	for _, d := range e.Dropped {
		v.Dropped = append(v.Dropped, EliminationView{Term: d.Term, PValue: num(d.PValue)})
	}
	return v
}

type RefineStepView struct {
	Removed       string   `json:"removed" yaml:"removed"`
	Reason        string   `json:"reason" yaml:"reason"`
	ModelID       string   `json:"model_id" yaml:"model_id"`
	Failures      int      `json:"failures" yaml:"failures"`
	Insignificant int      `json:"insignificant" yaml:"insignificant"`
	MaxVIF        *float64 `json:"max_vif" yaml:"max_vif"`
}

// RefinementView is the Box-Cox search and removal loop.
type RefinementView struct {
	Lambda           *float64         `json:"lambda" yaml:"lambda"`
	LogLik           *float64         `json:"log_likelihood,omitempty" yaml:"log_likelihood,omitempty"`
	Converged        bool             `json:"converged" yaml:"converged"`
	StopReason       string           `json:"stop_reason" yaml:"stop_reason"`
	Steps            []RefineStepView `json:"steps" yaml:"steps"`
	Final            FitView          `json:"final" yaml:"final"`
	FinalDiagnostics DiagnosticsView  `json:"final_diagnostics" yaml:"final_diagnostics"`
}

func NewRefinementView(r *transform.Refinement) RefinementView {
	v := RefinementView{
		Lambda:           num(r.Lambda),
		Converged:        r.Converged,
		StopReason:       r.StopReason,
		Steps:            []RefineStepView{},
		Final:            NewFitView(r.Final, false),
		FinalDiagnostics: NewDiagnosticsView(r.FinalReport),
	}
	if r.Profile != nil {
		v.LogLik = num(r.Profile.LogLik)
	}
	for _, s := range r.Steps {
		v.Steps = append(v.Steps, RefineStepView{
			Removed: s.Removed, Reason: s.Reason, ModelID: s.ModelID,
			Failures: s.Failures, Insignificant: s.Insignificant, MaxVIF: num(s.MaxVIF),
		})
	}
	return v
}

// RunView is a complete pipeline run.
type RunView struct {
	ID                 string           `json:"id" yaml:"id"`
	Dataset            string           `json:"dataset" yaml:"dataset"`
	Observations       int              `json:"observations" yaml:"observations"`
	Predictors         []string         `json:"predictors" yaml:"predictors"`
	Dropped            []string         `json:"dropped_columns" yaml:"dropped_columns"`
	StartedAt          time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt         time.Time        `json:"finished_at" yaml:"finished_at"`
	Selection          SelectionView    `json:"selection" yaml:"selection"`
	Base               string           `json:"base_formula" yaml:"base_formula"`
	Curvature          *ExplorationView `json:"curvature,omitempty" yaml:"curvature,omitempty"`
	Interactions       *ExplorationView `json:"interactions,omitempty" yaml:"interactions,omitempty"`
	Initial            FitView          `json:"initial" yaml:"initial"`
	InitialDiagnostics DiagnosticsView  `json:"initial_diagnostics" yaml:"initial_diagnostics"`
	Refinement         RefinementView   `json:"refinement" yaml:"refinement"`
	Notes              []string         `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func NewRunView(r *pipeline.Run) RunView {
	return RunView{
		ID:                 r.ID,
		Dataset:            r.Dataset,
		Observations:       r.Observations,
		Predictors:         r.Predictors,
		Dropped:            r.Dropped,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		Selection:          NewSelectionView(r.Dataset, r.Candidates),
		Base:               r.Base.String(),
		Curvature:          newExplorationView(r.Curvature),
		Interactions:       newExplorationView(r.Interactions),
		Initial:            NewFitView(r.Initial, false),
		InitialDiagnostics: NewDiagnosticsView(r.InitialReport),
		Refinement:         NewRefinementView(r.Refinement),
		Notes:              r.Notes,
	}
}

// DiagnoseView pairs a fit with its diagnostics.
type DiagnoseView struct {
	Dataset     string          `json:"dataset" yaml:"dataset"`
	Fit         FitView         `json:"fit" yaml:"fit"`
	Diagnostics DiagnosticsView `json:"diagnostics" yaml:"diagnostics"`
}

func NewDiagnoseView(dataset string, fm *model.Fitted, r *diagnostics.Report) DiagnoseView {
	return DiagnoseView{Dataset: dataset, Fit: NewFitView(fm, true), Diagnostics: NewDiagnosticsView(r)}
}

// RefineView is the standalone output of a refinement.
type RefineView struct {
	Dataset            string          `json:"dataset" yaml:"dataset"`
	Initial            FitView         `json:"initial" yaml:"initial"`
	InitialDiagnostics DiagnosticsView `json:"initial_diagnostics" yaml:"initial_diagnostics"`
	Refinement         RefinementView  `json:"refinement" yaml:"refinement"`
}

func NewRefineView(dataset string, r *transform.Refinement) RefineView {
	return RefineView{
		Dataset:            dataset,
		Initial:            NewFitView(r.Initial, false),
		InitialDiagnostics: NewDiagnosticsView(r.InitialReport),
		Refinement:         NewRefinementView(r),
	}
}
