package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ProfileOptions controls the pre-fit column profile.
type ProfileOptions struct {
	// OutlierThreshold is the robust |z| cut-off (MAD based).
	OutlierThreshold float64
	// TopCorrelations limits how many predictor/response pairs are listed.
	TopCorrelations int
}

// Profile summarises a dataset before any model is fitted.
type Profile struct {
	Name     string
	Rows     int
	Response string
	Cols     []ColumnSummary
	// Corr holds Pearson r of each predictor against the response, by |r| descending.
	Corr     []PairCorr
	Dropped  []string
	Warnings []string
}

// ColumnSummary captures statistics per numeric column.
type ColumnSummary struct {
	Name    string
	NonNull int
	Missing int
	Min     float64
	Max     float64
	Mean    float64
	Std     float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// NonPositive counts values <= 0, which rule out a power transform of the response.
	NonPositive int
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	N    int
	R    float64
}

// ProfileDataset computes per-column summaries and response correlations.
func ProfileDataset(d *Dataset, opt ProfileOptions) *Profile {
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}
	top := opt.TopCorrelations
	if top <= 0 {
		top = 10
	}
	p := &Profile{Name: d.Name(), Rows: d.Len(), Response: d.Response(), Dropped: d.Dropped()}
	y := d.cols[d.response]
	for _, name := range d.names {
		vals := finite(d.cols[name])
		s := ColumnSummary{Name: name, NonNull: len(vals), Missing: d.rows - len(vals), OutlierThreshold: thr}
		if len(vals) > 0 {
			s.Min, s.Max = floats(vals)
			if len(vals) > 1 {
				s.Mean, s.Std = stat.MeanStdDev(vals, nil)
			} else {
				s.Mean = vals[0]
			}
			for _, v := range vals {
				if v <= 0 {
					s.NonPositive++
				}
			}
		}
		if len(vals) >= 8 {
			median, mad := medianMAD(vals)
			if mad > 0 {
				for _, v := range vals {
					az := math.Abs(0.6745 * (v - median) / mad)
					if az > thr {
						s.OutliersCount++
					}
					if az > s.OutliersMaxAbsZ {
						s.OutliersMaxAbsZ = az
					}
				}
			}
		}
		p.Cols = append(p.Cols, s)
		if s.Missing > 0 && s.Missing*2 > d.rows {
			p.Warnings = append(p.Warnings, fmt.Sprintf("column %s is missing in %d/%d rows", name, s.Missing, d.rows))
		}
		if name == d.response {
			if s.NonPositive > 0 {
				p.Warnings = append(p.Warnings, fmt.Sprintf("response %s has %d non-positive values; Box-Cox refinement will fail", name, s.NonPositive))
			}
			continue
		}
		xs, ys := pairwiseComplete(d.cols[name], y)
		if len(xs) < 3 {
			continue
		}
		r := stat.Correlation(xs, ys, nil)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		p.Corr = append(p.Corr, PairCorr{A: name, B: d.response, N: len(xs), R: r})
	}
	sort.Slice(p.Corr, func(i, j int) bool {
		ai, aj := math.Abs(p.Corr[i].R), math.Abs(p.Corr[j].R)
		if ai == aj {
			return p.Corr[i].A < p.Corr[j].A
		}
		return ai > aj
	})
	if len(p.Corr) > top {
		p.Corr = p.Corr[:top]
	}
	return p
}

// Markdown renders a compact profile suitable for terminals or standalone docs.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET PROFILE]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Response: %s\n", p.Response))
	b.WriteString(fmt.Sprintf("Numeric columns: %d\n\n", len(p.Cols)))

	b.WriteString("[COLUMNS]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s (non-null %d, missing %.1f%%)", c.Name, c.NonNull, missPct))
		if c.NonNull > 0 {
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		}
		if c.OutliersCount > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
		}
		b.WriteString("\n")
	}
	if len(p.Corr) > 0 {
		b.WriteString("\n[CORRELATIONS WITH RESPONSE]\n")
		for _, c := range p.Corr {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)\n", c.A, c.B, c.R, c.N))
		}
	}
	if len(p.Dropped) > 0 || len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		if len(p.Dropped) > 0 {
			b.WriteString(fmt.Sprintf("- dropped non-numeric or excluded columns: %s\n", strings.Join(p.Dropped, ", ")))
		}
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func pairwiseComplete(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

func floats(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
