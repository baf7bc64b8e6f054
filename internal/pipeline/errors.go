package pipeline

import "fmt"

// Phases of a decode run, in order.
const (
	PhaseDictionary = "dictionary"
	PhaseSource     = "source"
	PhaseSink       = "sink"
	PhaseDecode     = "decode"
	PhaseReport     = "report"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
