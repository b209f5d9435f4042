package cortex

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Processor is the user callback that computes the value of one signal from
// its dependencies during an inference request.
type Processor func(e *InferenceEngine, s *Signal, deps []*Signal) (any, error)

// Warning is a non-fatal finding from engine construction.
type Warning struct {
	Variable VariableID
	Factor   FactorID
	Message  string
}

func (w Warning) String() string {
	return w.Message
}

// InferenceEngine owns the model adapter, the dependency resolver and the
// compute callback. Construction tags the model's signals with their
// variants and invokes the resolver over all ids.
//
// The engine is single-threaded. A guard detects concurrent entry from two
// goroutines and panics with a description of the misuse; serialized use
// from different goroutines behind an external mutex is fine.
type InferenceEngine struct {
	model     ModelEngine
	resolver  DependencyResolver
	processor Processor
	logger    *zap.Logger
	tracer    *Tracer
	warnings  []Warning
	maxRounds int

	active atomic.Int64
}

type engineConfig struct {
	resolver        DependencyResolver
	processor       Processor
	logger          *zap.Logger
	prepareMetadata bool
	resolveDeps     bool
	trace           bool
	maxRounds       int
}

// EngineOption configures engine construction.
type EngineOption func(*engineConfig)

// WithResolver replaces the default belief propagation resolver.
func WithResolver(r DependencyResolver) EngineOption {
	return func(c *engineConfig) { c.resolver = r }
}

// WithProcessor sets the inference request processor.
func WithProcessor(p Processor) EngineOption {
	return func(c *engineConfig) { c.processor = p }
}

// WithPrepareSignalsMetadata toggles variant and metadata assignment at
// construction (default true).
func WithPrepareSignalsMetadata(on bool) EngineOption {
	return func(c *engineConfig) { c.prepareMetadata = on }
}

// WithResolveDependencies toggles invoking the resolver at construction
// (default true).
func WithResolveDependencies(on bool) EngineOption {
	return func(c *engineConfig) { c.resolveDeps = on }
}

// WithTrace enables the tracer (default off).
func WithTrace(on bool) EngineOption {
	return func(c *engineConfig) { c.trace = on }
}

// WithLogger sets the engine logger (default zap.NewNop()).
func WithLogger(l *zap.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = l }
}

// WithMaxRounds caps the number of rounds a single UpdateMarginals may run
// before reporting StalledInferenceError (default 100).
func WithMaxRounds(n int) EngineOption {
	return func(c *engineConfig) { c.maxRounds = n }
}

// NewEngine builds an inference engine around a model container. The
// container must satisfy the ModelEngine adapter; anything else is rejected
// with UnsupportedEngineError naming the first missing method when the
// contract is partially met.
func NewEngine(container any, opts ...EngineOption) (*InferenceEngine, error) {
	model, err := asModelEngine(container)
	if err != nil {
		return nil, err
	}

	cfg := engineConfig{
		resolver:        NewBeliefPropagationResolver(),
		logger:          zap.NewNop(),
		prepareMetadata: true,
		resolveDeps:     true,
		maxRounds:       100,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &InferenceEngine{
		model:     model,
		resolver:  cfg.resolver,
		processor: cfg.processor,
		logger:    cfg.logger,
		maxRounds: cfg.maxRounds,
	}
	if cfg.trace {
		e.tracer = NewTracer()
	}

	if cfg.prepareMetadata {
		if err := e.prepareSignalsMetadata(); err != nil {
			return nil, errors.Wrap(err, "preparing signal metadata")
		}
	}
	if cfg.resolveDeps {
		if err := e.resolveDependencies(); err != nil {
			return nil, errors.Wrap(err, "resolving dependencies")
		}
	}

	e.collectWarnings()

	return e, nil
}

// single-method views of the adapter, used to name the missing method when a
// container almost satisfies the contract
var engineProbes = []struct {
	name string
	ok   func(any) bool
}{
	{"Variable", func(c any) bool {
		_, ok := c.(interface {
			Variable(VariableID) (*Variable, error)
		})
		return ok
	}},
	{"Factor", func(c any) bool {
		_, ok := c.(interface {
			Factor(FactorID) (*Factor, error)
		})
		return ok
	}},
	{"ConnectionBetween", func(c any) bool {
		_, ok := c.(interface {
			ConnectionBetween(VariableID, FactorID) (*Connection, error)
		})
		return ok
	}},
	{"VariableIDs", func(c any) bool {
		_, ok := c.(interface{ VariableIDs() iter.Seq[VariableID] })
		return ok
	}},
	{"FactorIDs", func(c any) bool {
		_, ok := c.(interface{ FactorIDs() iter.Seq[FactorID] })
		return ok
	}},
	{"ConnectedVariableIDs", func(c any) bool {
		_, ok := c.(interface {
			ConnectedVariableIDs(FactorID) iter.Seq[VariableID]
		})
		return ok
	}},
	{"ConnectedFactorIDs", func(c any) bool {
		_, ok := c.(interface {
			ConnectedFactorIDs(VariableID) iter.Seq[FactorID]
		})
		return ok
	}},
}

func asModelEngine(container any) (ModelEngine, error) {
	if model, ok := container.(ModelEngine); ok {
		return model, nil
	}

	// an entirely unknown type gets the bare error, a near miss names the
	// first missing method
	missing := ""
	satisfied := 0
	for _, probe := range engineProbes {
		switch {
		case probe.ok(container):
			satisfied++
		case missing == "":
			missing = probe.name
		}
	}
	if satisfied == 0 {
		return nil, &UnsupportedEngineError{Container: container}
	}
	return nil, &UnsupportedEngineError{Container: container, Method: missing}
}

func (e *InferenceEngine) prepareSignalsMetadata() error {
	for v := range e.model.VariableIDs() {
		variable, err := e.model.Variable(v)
		if err != nil {
			return err
		}
		if err := variable.Marginal().SetVariant(IndividualMarginal); err != nil {
			return err
		}
		variable.Marginal().SetMetadata(v)

		for f := range e.model.ConnectedFactorIDs(v) {
			conn, err := e.model.ConnectionBetween(v, f)
			if err != nil {
				return err
			}
			ref := MessageRef{Variable: v, Factor: f}

			if err := conn.MessageToVariable().SetVariant(MessageToVariable); err != nil {
				return err
			}
			conn.MessageToVariable().SetMetadata(ref)

			if err := conn.MessageToFactor().SetVariant(MessageToFactor); err != nil {
				return err
			}
			conn.MessageToFactor().SetMetadata(ref)
		}
	}
	return nil
}

func (e *InferenceEngine) resolveDependencies() error {
	for v := range e.model.VariableIDs() {
		if err := e.resolver.ResolveVariableDependencies(e, v); err != nil {
			return errors.Wrapf(err, "variable %d", v)
		}
	}
	for f := range e.model.FactorIDs() {
		if err := e.resolver.ResolveFactorDependencies(e, f); err != nil {
			return errors.Wrapf(err, "factor %d", f)
		}
	}
	return nil
}

func (e *InferenceEngine) collectWarnings() {
	for v := range e.model.VariableIDs() {
		connected := false
		for range e.model.ConnectedFactorIDs(v) {
			connected = true
			break
		}
		if !connected {
			w := Warning{
				Variable: v,
				Factor:   -1,
				Message:  fmt.Sprintf("variable %d has no connected factors", v),
			}
			e.warnings = append(e.warnings, w)
			e.logger.Warn("construction warning", zap.String("warning", w.Message))
		}
	}
}

// Warnings returns the non-fatal findings collected at construction.
func (e *InferenceEngine) Warnings() []Warning {
	return e.warnings
}

// Tracer returns the engine's tracer, or nil when tracing is disabled.
func (e *InferenceEngine) Tracer() *Tracer {
	return e.tracer
}

// Variable is a pass-through to the model adapter.
func (e *InferenceEngine) Variable(id VariableID) (*Variable, error) {
	return e.model.Variable(id)
}

// Factor is a pass-through to the model adapter.
func (e *InferenceEngine) Factor(id FactorID) (*Factor, error) {
	return e.model.Factor(id)
}

// ConnectionBetween is a pass-through to the model adapter.
func (e *InferenceEngine) ConnectionBetween(v VariableID, f FactorID) (*Connection, error) {
	return e.model.ConnectionBetween(v, f)
}

// Marginal returns the marginal signal of a variable.
func (e *InferenceEngine) Marginal(id VariableID) (*Signal, error) {
	v, err := e.model.Variable(id)
	if err != nil {
		return nil, err
	}
	return v.Marginal(), nil
}

// VariableIDs is a pass-through to the model adapter.
func (e *InferenceEngine) VariableIDs() iter.Seq[VariableID] {
	return e.model.VariableIDs()
}

// FactorIDs is a pass-through to the model adapter.
func (e *InferenceEngine) FactorIDs() iter.Seq[FactorID] {
	return e.model.FactorIDs()
}

// ConnectedVariableIDs is a pass-through to the model adapter.
func (e *InferenceEngine) ConnectedVariableIDs(f FactorID) iter.Seq[VariableID] {
	return e.model.ConnectedVariableIDs(f)
}

// ConnectedFactorIDs is a pass-through to the model adapter.
func (e *InferenceEngine) ConnectedFactorIDs(v VariableID) iter.Seq[FactorID] {
	return e.model.ConnectedFactorIDs(v)
}

// enter flags the engine busy for the calling goroutine. Two goroutines
// inside the engine at once is a programming error, not a recoverable
// condition.
func (e *InferenceEngine) enter() func() {
	gid := goid.Get()
	if !e.active.CompareAndSwap(0, gid) && e.active.Load() != gid {
		panic(fmt.Sprintf("cortex: engine entered concurrently from goroutines %d and %d", e.active.Load(), gid))
	}
	return func() { e.active.CompareAndSwap(gid, 0) }
}
