package model

import "fmt"

// InsufficientDataError indicates a model with more parameters than complete
// observations; its coefficients are not identifiable.
type InsufficientDataError struct {
	Observations int
	Parameters   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d complete observations for %d parameters (need at least %d)",
		e.Observations, e.Parameters, e.Parameters)
}
