package model

import (
	"math"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Coefficient is one estimated term with its t test.
type Coefficient struct {
	Term     string
	Estimate float64
	StdError float64
	TValue   float64
	PValue   float64
}

// Fitted is an immutable OLS fit of a Spec on a dataset. Accessors return copies.
type Fitted struct {
	id        string
	dataset   string
	spec      Spec
	coefs     []Coefficient
	design    *mat.Dense
	terms     []string
	response  []float64
	fitted    []float64
	residuals []float64
	leverage  []float64
	rank      int
	dfResid   int
	rss       float64
	r2        float64
	adjR2     float64
	sigma     float64
	fStat     float64
	fP        float64
	logLik    float64
	aic       float64
}

// Fit estimates the spec by ordinary least squares on the complete cases.
// It fails with *InsufficientDataError when there are fewer complete
// observations than parameters.
func Fit(ds *dataset.Dataset, spec Spec) (*Fitted, error) {
	d, err := BuildDesign(ds, spec)
	if err != nil {
		return nil, err
	}
	sol, err := LeastSquares(d.X, d.Y)
	if err != nil {
		return nil, err
	}
	n := d.Rows()
	f := &Fitted{
		id:        uuid.NewString(),
		dataset:   ds.Name(),
		spec:      spec,
		design:    d.X,
		terms:     d.Terms,
		response:  d.Y,
		fitted:    sol.Fitted,
		residuals: sol.Residuals,
		leverage:  sol.Leverage,
		rank:      sol.Rank,
		dfResid:   n - sol.Rank,
		rss:       sol.RSS,
	}
	f.r2 = RSquared(d.Y, sol.RSS)

	sigma2 := math.NaN()
	if f.dfResid > 0 {
		sigma2 = sol.RSS / float64(f.dfResid)
		f.adjR2 = 1 - (1-f.r2)*float64(n-1)/float64(f.dfResid)
	} else {
		f.adjR2 = math.NaN()
	}
	f.sigma = math.Sqrt(sigma2)

	f.coefs = make([]Coefficient, len(d.Terms))
	for j, term := range d.Terms {
		c := Coefficient{Term: term, Estimate: sol.Beta[j]}
		c.StdError = math.Sqrt(sigma2 * sol.xtxInv.At(j, j))
		c.TValue = c.Estimate / c.StdError
		c.PValue = math.NaN()
		switch {
		case f.dfResid <= 0 || math.IsNaN(c.TValue):
		case math.IsInf(c.TValue, 0):
			c.PValue = 0
		default:
			t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(f.dfResid)}
			c.PValue = 2 * t.Survival(math.Abs(c.TValue))
		}
		f.coefs[j] = c
	}

	f.fStat, f.fP = math.NaN(), math.NaN()
	if dfModel := sol.Rank - 1; dfModel > 0 && f.dfResid > 0 {
		tss := centredSS(d.Y)
		if sol.RSS == 0 {
			f.fStat, f.fP = math.Inf(1), 0
		} else {
			f.fStat = ((tss - sol.RSS) / float64(dfModel)) / sigma2
			fd := distuv.F{D1: float64(dfModel), D2: float64(f.dfResid)}
			f.fP = fd.Survival(f.fStat)
		}
	}

	// Gaussian log-likelihood at the MLE of sigma; AIC counts sigma as a parameter.
	nf := float64(n)
	f.logLik = -nf / 2 * (math.Log(2*math.Pi) + math.Log(sol.RSS/nf) + 1)
	f.aic = -2*f.logLik + 2*float64(sol.Rank+1)
	return f, nil
}

func (f *Fitted) ID() string             { return f.id }
func (f *Fitted) Dataset() string        { return f.dataset }
func (f *Fitted) Spec() Spec             { return f.spec }
func (f *Fitted) N() int                 { return len(f.response) }
func (f *Fitted) Rank() int              { return f.rank }
func (f *Fitted) DFResid() int           { return f.dfResid }
func (f *Fitted) RSS() float64           { return f.rss }
func (f *Fitted) RSquared() float64      { return f.r2 }
func (f *Fitted) AdjRSquared() float64   { return f.adjR2 }
func (f *Fitted) Sigma() float64         { return f.sigma }
func (f *Fitted) FStatistic() float64    { return f.fStat }
func (f *Fitted) FPValue() float64       { return f.fP }
func (f *Fitted) LogLikelihood() float64 { return f.logLik }
func (f *Fitted) AIC() float64           { return f.aic }

// Coefficients returns a copy of the coefficient table, intercept first.
func (f *Fitted) Coefficients() []Coefficient {
	out := make([]Coefficient, len(f.coefs))
	copy(out, f.coefs)
	return out
}

// Coefficient looks up a term by label.
func (f *Fitted) Coefficient(term string) (Coefficient, bool) {
	for _, c := range f.coefs {
		if c.Term == term {
			return c, true
		}
	}
	return Coefficient{}, false
}

// PValue returns the p-value of a term, NaN when the term is absent or not estimable.
func (f *Fitted) PValue(term string) float64 {
	c, ok := f.Coefficient(term)
	if !ok {
		return math.NaN()
	}
	return c.PValue
}

// Terms returns the design column labels, intercept first.
func (f *Fitted) Terms() []string { return copyStrings(f.terms) }

func (f *Fitted) Response() []float64     { return copyFloats(f.response) }
func (f *Fitted) FittedValues() []float64 { return copyFloats(f.fitted) }
func (f *Fitted) Residuals() []float64    { return copyFloats(f.residuals) }

// Leverage returns the diagonal of the hat matrix.
func (f *Fitted) Leverage() []float64 { return copyFloats(f.leverage) }

// Design returns a copy of the design matrix, intercept column first.
func (f *Fitted) Design() *mat.Dense { return mat.DenseCopyOf(f.design) }

func copyFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func copyStrings(v []string) []string {
	out := make([]string, len(v))
	copy(out, v)
	return out
}
