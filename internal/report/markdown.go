package report

import (
	"fmt"
	"strings"
	"time"
)

func f4(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *v)
}

func pval(v *float64) string {
	if v == nil {
		return "n/a"
	}
	if *v < 1e-4 {
		return "<1e-4"
	}
	return fmt.Sprintf("%.4f", *v)
}

func mark(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func list(v []string) string {
	if len(v) == 0 {
		return "(none)"
	}
	return strings.Join(v, ", ")
}

func (v FitView) write(b *strings.Builder, title string) {
	fmt.Fprintf(b, "[%s]\n", title)
	fmt.Fprintf(b, "Formula: %s\n", v.Formula)
	fmt.Fprintf(b, "Observations: %d, rank %d, residual df %d\n", v.Observations, v.Rank, v.DFResid)
	fmt.Fprintf(b, "R²: %s (adjusted %s), sigma %s, log-likelihood %s, AIC %s\n", f4(v.RSquared), f4(v.AdjRSquared), f4(v.Sigma), f4(v.LogLik), f4(v.AIC))
	fmt.Fprintf(b, "F: %s (p %s)\n\n", f4(v.FStatistic), pval(v.FPValue))
	b.WriteString("| term | estimate | std. error | t | p |\n|---|---|---|---|---|\n")
	for _, c := range v.Coefficients {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", c.Term, f4(c.Estimate), f4(c.StdError), f4(c.TValue), pval(c.PValue))
	}
	b.WriteString("\n")
}

func (v DiagnosticsView) write(b *strings.Builder, title string) {
	fmt.Fprintf(b, "[%s]\n", title)
	for _, c := range v.Checks {
		fmt.Fprintf(b, "- %s: %s (%s; statistic %s", c.Assumption, mark(c.Pass), c.Test, f4(c.Statistic))
		if c.PValue != nil {
			fmt.Fprintf(b, ", p %s", pval(c.PValue))
		}
		fmt.Fprintf(b, ") %s\n", c.Detail)
		for _, tv := range c.VIF {
			vif := "inf"
			if tv.VIF != nil {
				vif = fmt.Sprintf("%.3g", *tv.VIF)
			}
			fmt.Fprintf(b, "  - VIF %s = %s\n", tv.Term, vif)
		}
		if len(c.Flagged) > 0 {
			idx := make([]string, len(c.Flagged))
			for i, f := range c.Flagged {
				idx[i] = fmt.Sprint(f + 1)
			}
			fmt.Fprintf(b, "  - flagged rows: %s\n", strings.Join(idx, ", "))
		}
	}
	if v.AllPass {
		b.WriteString("All assumptions hold.\n\n")
	} else {
		fmt.Fprintf(b, "Failing: %s\n\n", list(v.Failures))
	}
}

func (v StrategyView) write(b *strings.Builder) {
	fmt.Fprintf(b, "- %s: %s\n", v.Strategy, list(v.Predictors))
	for _, s := range v.Steps {
		fmt.Fprintf(b, "  - %s %s (p %s)\n", s.Action, s.Term, pval(s.PValue))
	}
}

func (v SelectionView) write(b *strings.Builder) {
	b.WriteString("[SELECTION]\n")
	v.Forward.write(b)
	v.Backward.write(b)
	v.Bidirectional.write(b)
	fmt.Fprintf(b, "Common to all strategies: %s\n\n", list(v.Common))
}

func (v *ExplorationView) write(b *strings.Builder, title string) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "[%s]\n", title)
	fmt.Fprintf(b, "Kept: %s\n", list(v.Kept))
	for _, d := range v.Dropped {
		fmt.Fprintf(b, "- dropped %s (p %s)\n", d.Term, pval(d.PValue))
	}
	fmt.Fprintf(b, "Result: %s\n\n", v.Formula)
}

func (v RefinementView) write(b *strings.Builder) {
	b.WriteString("[BOX-COX]\n")
	fmt.Fprintf(b, "Lambda: %s", f4(v.Lambda))
	if v.LogLik != nil {
		fmt.Fprintf(b, " (profile log-likelihood %s)", f4(v.LogLik))
	}
	b.WriteString("\n\n[REFINEMENT]\n")
	for i, s := range v.Steps {
		fmt.Fprintf(b, "%d. removed %s (%s): %d failing checks, %d insignificant terms, max VIF %s\n",
			i+1, s.Removed, s.Reason, s.Failures, s.Insignificant, f4(s.MaxVIF))
	}
	if len(v.Steps) == 0 {
		b.WriteString("No terms removed.\n")
	}
	fmt.Fprintf(b, "Stopped: %s (converged: %v)\n\n", v.StopReason, v.Converged)
	v.Final.write(b, "FINAL MODEL")
	v.FinalDiagnostics.write(b, "FINAL DIAGNOSTICS")
}

// Markdown renders the selection outcome.
func (v SelectionView) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[DATASET]\nFile: %s\n\n", v.Dataset)
	v.write(&b)
	return b.String()
}

// Markdown renders a fit and its diagnostics.
func (v DiagnoseView) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[DATASET]\nFile: %s\n\n", v.Dataset)
	v.Fit.write(&b, "MODEL")
	v.Diagnostics.write(&b, "DIAGNOSTICS")
	return b.String()
}

// Markdown renders a standalone refinement.
func (v RefineView) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[DATASET]\nFile: %s\n\n", v.Dataset)
	v.Initial.write(&b, "INITIAL MODEL (TRANSFORMED)")
	v.InitialDiagnostics.write(&b, "INITIAL DIAGNOSTICS")
	v.Refinement.write(&b)
	return b.String()
}

// Markdown renders the full run.
func (v RunView) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN]\n")
	fmt.Fprintf(&b, "ID: %s\n", v.ID)
	if !v.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Elapsed: %s\n", v.FinishedAt.Sub(v.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n[DATASET]\n")
	fmt.Fprintf(&b, "File: %s\nRows: %d\nPredictors: %s\n", v.Dataset, v.Observations, list(v.Predictors))
	if len(v.Dropped) > 0 {
		fmt.Fprintf(&b, "Dropped columns: %s\n", list(v.Dropped))
	}
	b.WriteString("\n")
	v.Selection.write(&b)
	fmt.Fprintf(&b, "[BASE MODEL]\n%s\n\n", v.Base)
	v.Curvature.write(&b, "CURVATURE")
	v.Interactions.write(&b, "INTERACTIONS")
	v.Initial.write(&b, "INITIAL MODEL")
	v.InitialDiagnostics.write(&b, "INITIAL DIAGNOSTICS")
	v.Refinement.write(&b)
	if len(v.Notes) > 0 {
		b.WriteString("[NOTES]\n")
		for _, n := range v.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}
