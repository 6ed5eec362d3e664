package selection

import "fmt"

// SelectionDivergenceError reports a strategy that still had an eligible
// add or remove action after MaxSteps actions.
type SelectionDivergenceError struct {
	Strategy Strategy
	Steps    int
}

func (e *SelectionDivergenceError) Error() string {
	return fmt.Sprintf("%s selection did not converge within %d steps", e.Strategy, e.Steps)
}
