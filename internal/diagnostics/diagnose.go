package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/regdiag-cli/internal/model"
)

// Assumption names one of the six OLS assumptions.
type Assumption string

const (
	Linearity         Assumption = "linearity"
	Normality         Assumption = "normality"
	EqualVariance     Assumption = "equal_variance"
	Independence      Assumption = "independence"
	Multicollinearity Assumption = "multicollinearity"
	Outliers          Assumption = "outliers"
)

// Assumptions lists every assumption in report order.
var Assumptions = []Assumption{Linearity, Normality, EqualVariance, Independence, Multicollinearity, Outliers}

// Thresholds holds the pass rules shared by every check.
type Thresholds struct {
	Alpha            float64 `default:"0.05" validate:"gt=0,lt=1"`
	MaxVIF           float64 `default:"10" validate:"gt=1"`
	MaxCooksDistance float64 `default:"0.5" validate:"gt=0"`
}

// DefaultThresholds returns alpha 0.05, VIF < 10 and Cook's distance < 0.5.
func DefaultThresholds() Thresholds {
	var t Thresholds
	if err := defaults.Set(&t); err != nil {
		panic(err)
	}
	return t
}

var validate = validator.New()

// Validate reports thresholds outside their meaningful range.
func (t Thresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// TermValue pairs a model term with a per-term statistic.
type TermValue struct {
	Term  string  `json:"term" yaml:"term"`
	Value float64 `json:"value" yaml:"value"`
}

// Check is the verdict for one assumption. PValue is NaN for checks that are
// not hypothesis tests; Statistic is NaN when nothing could be computed.
type Check struct {
	Assumption Assumption
	Pass       bool
	Test       string
	Statistic  float64
	PValue     float64
	Threshold  float64
	Detail     string
	Values     []TermValue // per-term VIFs
	Distances  []float64   // per-observation Cook's distances
	Flagged    []int       // observations at or above the Cook's threshold
}

// Report holds the six checks for one fitted model.
type Report struct {
	ModelID string
	Formula string
	Checks  []Check
}

// Check returns the verdict for an assumption.
func (r *Report) Check(a Assumption) (Check, bool) {
	for _, c := range r.Checks {
		if c.Assumption == a {
			return c, true
		}
	}
	return Check{}, false
}

// AllPass reports whether every assumption holds.
func (r *Report) AllPass() bool { return len(r.Failures()) == 0 }

// Failures lists the assumptions that did not pass, in report order.
func (r *Report) Failures() []Assumption {
	var out []Assumption
	for _, c := range r.Checks {
		if !c.Pass {
			out = append(out, c.Assumption)
		}
	}
	return out
}

// MaxVIF returns the largest VIF in the multicollinearity check, or 0.
func (r *Report) MaxVIF() float64 {
	c, ok := r.Check(Multicollinearity)
	if !ok || math.IsNaN(c.Statistic) {
		return 0
	}
	return c.Statistic
}

// Diagnose runs every check on the fitted model.
func Diagnose(fm *model.Fitted, t Thresholds) *Report {
	return &Report{
		ModelID: fm.ID(),
		Formula: fm.Spec().String(),
		Checks: []Check{
			CheckLinearity(fm, t),
			CheckNormality(fm, t),
			CheckEqualVariance(fm, t),
			CheckIndependence(fm, t),
			CheckMulticollinearity(fm, t),
			CheckOutliers(fm, t),
		},
	}
}

func nan() float64 { return math.NaN() }

func skipped(a Assumption, test string, threshold float64, why string) Check {
	return Check{Assumption: a, Pass: true, Test: test, Statistic: nan(), PValue: nan(), Threshold: threshold, Detail: "not computed: " + why}
}

// CheckLinearity runs the RESET test; p >= alpha passes.
func CheckLinearity(fm *model.Fitted, t Thresholds) Check {
	const test = "Ramsey RESET (fitted^2, fitted^3)"
	r := Reset(fm.Design(), fm.Response(), fm.FittedValues(), fm.RSS(), fm.Rank())
	if r == nil {
		return skipped(Linearity, test, t.Alpha, "too few residual degrees of freedom")
	}
	return Check{
		Assumption: Linearity,
		Pass:       r.PValue >= t.Alpha,
		Test:       test,
		Statistic:  r.F,
		PValue:     r.PValue,
		Threshold:  t.Alpha,
		Detail:     fmt.Sprintf("F(%d, %d) = %.4g", r.DF1, r.DF2, r.F),
	}
}

// CheckNormality runs Shapiro-Wilk on the residuals; p >= alpha passes.
func CheckNormality(fm *model.Fitted, t Thresholds) Check {
	const test = "Shapiro-Wilk"
	if fm.DFResid() < 1 {
		return skipped(Normality, test, t.Alpha, "no residual degrees of freedom")
	}
	r := ShapiroWilk(fm.Residuals())
	if r == nil {
		return skipped(Normality, test, t.Alpha, "needs 3 to 5000 non-constant residuals")
	}
	return Check{
		Assumption: Normality,
		Pass:       r.PValue >= t.Alpha,
		Test:       test,
		Statistic:  r.W,
		PValue:     r.PValue,
		Threshold:  t.Alpha,
		Detail:     fmt.Sprintf("W = %.4f on %d residuals", r.W, r.N),
	}
}

// CheckEqualVariance runs Breusch-Pagan; p >= alpha passes.
func CheckEqualVariance(fm *model.Fitted, t Thresholds) Check {
	const test = "Breusch-Pagan (studentised)"
	if fm.DFResid() < 1 {
		return skipped(EqualVariance, test, t.Alpha, "no residual degrees of freedom")
	}
	r := BreuschPagan(fm.Design(), fm.Residuals())
	if r == nil {
		return skipped(EqualVariance, test, t.Alpha, "model has no regressors")
	}
	return Check{
		Assumption: EqualVariance,
		Pass:       r.PValue >= t.Alpha,
		Test:       test,
		Statistic:  r.LM,
		PValue:     r.PValue,
		Threshold:  t.Alpha,
		Detail:     fmt.Sprintf("LM = %.4g, df = %d", r.LM, r.DOF),
	}
}

// CheckIndependence is assumed to hold; the Durbin-Watson statistic is
// attached for information only.
func CheckIndependence(fm *model.Fitted, _ Thresholds) Check {
	dw := DurbinWatson(fm.Residuals())
	return Check{
		Assumption: Independence,
		Pass:       true,
		Test:       "Durbin-Watson (informational)",
		Statistic:  dw,
		PValue:     nan(),
		Threshold:  nan(),
		Detail:     "assumed by construction (cross-sectional observations)",
	}
}

// CheckMulticollinearity passes when every term's VIF is below MaxVIF.
func CheckMulticollinearity(fm *model.Fitted, t Thresholds) Check {
	const test = "variance inflation factor"
	terms := fm.Terms()
	vifs := VIF(fm.Design())
	if len(vifs) == 0 {
		return skipped(Multicollinearity, test, t.MaxVIF, "intercept-only model")
	}
	c := Check{Assumption: Multicollinearity, Pass: true, Test: test, PValue: nan(), Threshold: t.MaxVIF}
	worst := ""
	c.Statistic = 0
	for j, v := range vifs {
		c.Values = append(c.Values, TermValue{Term: terms[j+1], Value: v})
		if math.IsNaN(v) {
			continue
		}
		if v >= t.MaxVIF {
			c.Pass = false
		}
		if v > c.Statistic || worst == "" {
			c.Statistic, worst = v, terms[j+1]
		}
	}
	c.Detail = fmt.Sprintf("max VIF %.4g (%s)", c.Statistic, worst)
	return c
}

// CheckOutliers passes when every Cook's distance is below MaxCooksDistance.
func CheckOutliers(fm *model.Fitted, t Thresholds) Check {
	const test = "Cook's distance"
	d := CooksDistance(fm.Residuals(), fm.Leverage(), fm.Rank())
	if d == nil {
		return skipped(Outliers, test, t.MaxCooksDistance, "no residual degrees of freedom")
	}
	c := Check{Assumption: Outliers, Pass: true, Test: test, PValue: nan(), Threshold: t.MaxCooksDistance, Distances: d}
	for i, v := range d {
		if v >= t.MaxCooksDistance {
			c.Flagged = append(c.Flagged, i)
		}
		if i == 0 || v > c.Statistic {
			c.Statistic = v
		}
	}
	c.Pass = len(c.Flagged) == 0
	c.Detail = fmt.Sprintf("max D = %.4g, %d observation(s) flagged", c.Statistic, len(c.Flagged))
	return c
}

// Insignificant returns the non-intercept coefficients whose p-value is
// above alpha (or not estimable), least significant first.
func Insignificant(fm *model.Fitted, alpha float64) []model.Coefficient {
	var out []model.Coefficient
	for _, c := range fm.Coefficients() {
		if c.Term == model.InterceptTerm {
			continue
		}
		if math.IsNaN(c.PValue) || c.PValue > alpha {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return pOrInf(out[i].PValue) > pOrInf(out[j].PValue) })
	return out
}

func pOrInf(p float64) float64 {
	if math.IsNaN(p) {
		return math.Inf(1)
	}
	return p
}
