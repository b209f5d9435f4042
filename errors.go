package cortex

import "fmt"

// UnsupportedEngineError is returned when a container passed to NewEngine does
// not satisfy the ModelEngine adapter. Method names the first missing method
// when the container is close to the contract but incomplete.
type UnsupportedEngineError struct {
	Container any
	Method    string
}

func (e *UnsupportedEngineError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("cortex: unsupported model engine %T: missing method %s", e.Container, e.Method)
	}
	return fmt.Sprintf("cortex: unsupported model engine %T", e.Container)
}

// NotPendingError is returned by Compute when the target signal is not
// pending and the Force option is off.
type NotPendingError struct {
	Signal *Signal
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("cortex: signal %s is not pending", describeSignal(e.Signal))
}

// VariantMismatchError is returned when a signal's variant tag or pinned value
// type is violated.
type VariantMismatchError struct {
	Signal   *Signal
	Expected string
	Actual   string
}

func (e *VariantMismatchError) Error() string {
	return fmt.Sprintf("cortex: variant mismatch on signal %s: expected %s, got %s",
		describeSignal(e.Signal), e.Expected, e.Actual)
}

// StalledInferenceError is returned by UpdateMarginals when the target
// marginals cannot be satisfied: either the round cap was reached or a scan
// produced no computable signals while targets were still unsatisfied.
type StalledInferenceError struct {
	Targets       []VariableID
	RoundsElapsed int
}

func (e *StalledInferenceError) Error() string {
	return fmt.Sprintf("cortex: inference stalled for targets %v after %d rounds", e.Targets, e.RoundsElapsed)
}

func describeSignal(s *Signal) string {
	if s == nil {
		return "<nil>"
	}
	if v := s.Variant(); v != Unspecified {
		return fmt.Sprintf("%s(%v)", v, s.Metadata())
	}
	return fmt.Sprintf("%p", s)
}
