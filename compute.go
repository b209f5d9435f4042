package cortex

// ComputeStrategy produces a new value for a signal from its dependencies.
//
// A strategy may be a plain function (see StrategyFunc) or an object carrying
// its own parameters.
type ComputeStrategy interface {
	Apply(s *Signal, deps []*Signal) (any, error)
}

// StrategyFunc adapts a function to the ComputeStrategy interface.
type StrategyFunc func(s *Signal, deps []*Signal) (any, error)

func (f StrategyFunc) Apply(s *Signal, deps []*Signal) (any, error) {
	return f(s, deps)
}

// ComputeOptions configures a single Compute call.
type ComputeOptions struct {
	// Force computes the signal even when it is not pending.
	Force bool

	// SkipWithoutListeners returns silently when the signal has no
	// listeners, so leaf outputs nobody observes are not recomputed.
	SkipWithoutListeners bool
}

// Compute applies the strategy to a pending signal and writes the result back
// through SetValue, which unsets pending and notifies listeners.
//
// Computing a non-pending signal is an error unless Force is set. A strategy
// error is surfaced unchanged and leaves the signal untouched.
func Compute(strategy ComputeStrategy, s *Signal, opts ComputeOptions) error {
	if opts.SkipWithoutListeners && len(s.listeners) == 0 {
		return nil
	}
	if !opts.Force && !s.pending {
		return &NotPendingError{Signal: s}
	}

	v, err := strategy.Apply(s, s.deps)
	if err != nil {
		return err
	}

	return s.SetValue(v)
}
