package transform

import "fmt"

// DegenerateTransformError reports a lambda search in which no grid point
// produced a finite log-likelihood.
type DegenerateTransformError struct {
	Min, Max float64
	Reason   string
}

func (e *DegenerateTransformError) Error() string {
	return fmt.Sprintf("box-cox search over [%g, %g] has no finite likelihood: %s", e.Min, e.Max, e.Reason)
}
