package cortex

import "github.com/cortexgraph/cortex/internal/bitfield"

// ProcessDependencies walks the signal's dependencies in insertion order and
// invokes fn on each, returning the OR of every invocation.
//
// Intermediate dependencies are recursed into first, depth-first. When retry
// is set and the recursion into an intermediate handled something while the
// first fn call on it returned false, fn is invoked on the intermediate once
// more and that result replaces the first. This lets a caller fulfil the
// leaves below a pass-through accumulator and then re-attempt the
// accumulator itself in the same walk.
func (s *Signal) ProcessDependencies(fn func(*Signal) bool, retry bool) bool {
	processed := false

	for i, d := range s.deps {
		intermediate := s.depProps.Has(i, bitfield.Intermediate)

		recursed := false
		if intermediate {
			recursed = d.ProcessDependencies(fn, retry)
			processed = processed || recursed
		}

		ok := fn(d)
		if intermediate && retry && recursed && !ok {
			ok = fn(d)
		}

		processed = processed || ok
	}

	return processed
}
