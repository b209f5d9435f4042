package cortex

import (
	"iter"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// InferenceRequest scans the pending frontier of one or more target
// variables and produces rounds of signals to compute. Each round lists, in
// reverse-dependency order, every pending signal contributing to the target
// marginals; executing a round and rescanning yields the next one.
type InferenceRequest struct {
	engine    *InferenceEngine
	targets   []VariableID
	marginals []*Signal
}

// NewInferenceRequest creates a request for the given target variables.
// Frontiers of multiple targets are merged, so shared work appears once per
// round.
func NewInferenceRequest(e *InferenceEngine, targets ...VariableID) (*InferenceRequest, error) {
	r := &InferenceRequest{engine: e, targets: targets}
	for _, t := range targets {
		m, err := e.Marginal(t)
		if err != nil {
			return nil, errors.Wrapf(err, "target %d", t)
		}
		r.marginals = append(r.marginals, m)
	}
	return r, nil
}

// Satisfied reports whether every target marginal is computed and not
// pending.
func (r *InferenceRequest) Satisfied() bool {
	for _, m := range r.marginals {
		if !m.IsComputed() || m.IsPending() {
			return false
		}
	}
	return true
}

// ScanRound collects the current pending frontier: every pending signal in
// the dependency cone of the target marginals, walked depth-first through
// ProcessDependencies so intermediate accumulators are crossed and retried.
// The result lists dependencies before dependents; ties follow the order
// edges were added. Cones of multiple targets are merged, so shared work
// appears once.
func (r *InferenceRequest) ScanRound() []*Signal {
	var order []*Signal
	visited := make(map[*Signal]bool)
	scheduled := make(map[*Signal]bool)

	var walk func(s *Signal)
	walk = func(s *Signal) {
		if visited[s] {
			return
		}
		visited[s] = true

		s.ProcessDependencies(func(d *Signal) bool {
			walk(d)
			return scheduled[d] || d.IsComputed()
		}, true)

		if s.IsPending() && !scheduled[s] {
			scheduled[s] = true
			order = append(order, s)
		}
	}

	for _, m := range r.marginals {
		walk(m)
	}

	return order
}

// Rounds lazily yields one scanned round at a time. The caller must execute
// (or otherwise resolve) each round before pulling the next, since the next
// scan reads the pending state the previous round left behind. Iteration
// stops on an empty round.
func (r *InferenceRequest) Rounds() iter.Seq[[]*Signal] {
	return func(yield func([]*Signal) bool) {
		for {
			round := r.ScanRound()
			if len(round) == 0 {
				return
			}
			if !yield(round) {
				return
			}
		}
	}
}

// UpdateMarginals drives rounds until the marginals of all targets are
// computed and not pending.
//
// Each round invokes the inference request processor per signal and writes
// the result back through SetValue, which re-triggers pending propagation
// for the next round. A processor error abandons the in-progress round with
// already computed signals keeping their values. An empty round with
// unsatisfied targets, or more than the configured maximum number of rounds,
// reports StalledInferenceError.
func (e *InferenceEngine) UpdateMarginals(targets ...VariableID) error {
	defer e.enter()()

	if e.processor == nil {
		return errors.New("cortex: engine has no inference request processor")
	}

	req, err := NewInferenceRequest(e, targets...)
	if err != nil {
		return err
	}

	var rt *RequestTrace
	if e.tracer != nil {
		rt = e.tracer.beginRequest(targets)
	}

	rounds := 0
	for {
		round := req.ScanRound()
		if len(round) == 0 {
			if req.Satisfied() {
				return nil
			}
			return &StalledInferenceError{Targets: targets, RoundsElapsed: rounds}
		}
		if rounds >= e.maxRounds {
			return &StalledInferenceError{Targets: targets, RoundsElapsed: rounds}
		}
		rounds++

		if err := e.executeRound(rt, round); err != nil {
			return err
		}

		e.logger.Debug("round executed",
			zap.Int("round", rounds),
			zap.Int("signals", len(round)))
	}
}

func (e *InferenceEngine) executeRound(rt *RequestTrace, round []*Signal) error {
	var roundStart time.Time
	if rt != nil {
		roundStart = time.Now()
	}

	var execs []ExecutionTrace
	for _, s := range round {
		var before any
		var execStart time.Time
		if rt != nil {
			before = s.Value()
			execStart = time.Now()
		}

		v, err := e.processor(e, s, s.deps)
		if err != nil {
			return err
		}
		if err := s.SetValue(v); err != nil {
			return err
		}

		if rt != nil {
			execs = append(execs, ExecutionTrace{
				Variable: servedVariable(s),
				Signal:   s,
				Variant:  s.Variant(),
				Metadata: s.Metadata(),
				Before:   before,
				After:    v,
				Elapsed:  time.Since(execStart),
			})
		}
	}

	if rt != nil {
		rt.Rounds = append(rt.Rounds, RoundTrace{
			Elapsed:    time.Since(roundStart),
			Executions: execs,
		})
	}

	return nil
}

// servedVariable recovers the variable an execution serves from the signal's
// metadata. Signals without a variable association report -1.
func servedVariable(s *Signal) VariableID {
	switch m := s.Metadata().(type) {
	case MessageRef:
		return m.Variable
	case ProductRef:
		return m.Ref.Variable
	case VariableID:
		return m
	default:
		return -1
	}
}
