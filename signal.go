package cortex

import (
	"iter"
	"reflect"

	"github.com/cortexgraph/cortex/internal/bitfield"
)

// Signal is a reactive node. It holds a runtime-typed value, a variant tag,
// opaque metadata, an ordered list of dependencies with four packed flag bits
// per slot, and an ordered list of listeners with one mask bit per slot.
//
// Signals are single-threaded. The dependency graph is append-only; removal
// of edges is not supported.
type Signal struct {
	value    any
	variant  Variant
	metadata any

	// non-nil when the value type was pinned at construction
	valueType reflect.Type

	computed bool
	pending  bool

	deps     []*Signal
	depProps bitfield.PropVector

	listeners  []*Signal
	listenMask bitfield.BitVector
}

// SignalOption configures a signal at construction.
type SignalOption func(*Signal)

// WithValue sets the initial value. A signal created with a value other than
// Undef starts out computed.
func WithValue(v any) SignalOption {
	return func(s *Signal) {
		s.value = v
		s.computed = !IsUndef(v)
	}
}

// WithVariant tags the signal at construction.
func WithVariant(v Variant) SignalOption {
	return func(s *Signal) { s.variant = v }
}

// WithMetadata attaches opaque metadata.
func WithMetadata(m any) SignalOption {
	return func(s *Signal) { s.metadata = m }
}

// NewSignal creates a signal with no dependencies and no listeners.
func NewSignal(opts ...SignalOption) *Signal {
	s := &Signal{
		value:    Undef,
		metadata: Undef,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTypedSignal creates a signal whose value type is pinned to the dynamic
// type of initial. Writing a value of a different type, or linking it to a
// signal pinned to a different type, yields VariantMismatchError.
func NewTypedSignal(initial any, opts ...SignalOption) *Signal {
	s := NewSignal(append([]SignalOption{WithValue(initial)}, opts...)...)
	s.valueType = reflect.TypeOf(initial)
	return s
}

// Value returns the current value, or Undef when the signal was never
// computed.
func (s *Signal) Value() any {
	return s.value
}

// IsComputed reports whether the signal holds a defined value.
func (s *Signal) IsComputed() bool {
	return s.computed
}

// IsPending reports whether the signal is ready to be recomputed: every
// dependency slot satisfies Computed && (Weak || Fresh). A signal with zero
// dependencies is never pending.
func (s *Signal) IsPending() bool {
	return s.pending
}

// SetValue overwrites the stored value, marks the signal computed and not
// pending, consumes the freshness of its own dependencies, then notifies
// listeners.
//
// There is no pending precondition here. Use Compute to get the guarded
// behaviour.
func (s *Signal) SetValue(v any) error {
	if err := s.checkValueType(v); err != nil {
		return err
	}

	// producing a value consumes the inputs
	s.depProps.ClearAll(bitfield.Fresh)

	s.value = v
	s.computed = true
	s.pending = false

	for k, l := range s.listeners {
		if !s.listenMask.Get(k) {
			continue
		}
		l.notifyFrom(s)
	}

	return nil
}

// notifyFrom marks the first dependency slot holding dep as computed and
// fresh, then re-evaluates the pending predicate. Only the first matching
// slot is touched, so a duplicate edge is never independently notified.
func (l *Signal) notifyFrom(dep *Signal) {
	for i, d := range l.deps {
		if d == dep {
			l.depProps.Set(i, bitfield.Computed|bitfield.Fresh)
			break
		}
	}
	if l.depProps.AllReady() {
		l.pending = true
	}
}

// Variant returns the signal's variant tag.
func (s *Signal) Variant() Variant {
	return s.variant
}

// SetVariant tags the signal. The tag may be set at most once from
// Unspecified; setting the same tag again is a no-op, any other tag yields
// VariantMismatchError.
func (s *Signal) SetVariant(v Variant) error {
	if s.variant == v {
		return nil
	}
	if s.variant != Unspecified {
		return &VariantMismatchError{Signal: s, Expected: s.variant.String(), Actual: v.String()}
	}
	s.variant = v
	return nil
}

// Metadata returns the opaque metadata, or Undef if none was attached.
func (s *Signal) Metadata() any {
	return s.metadata
}

// SetMetadata attaches opaque metadata.
func (s *Signal) SetMetadata(m any) {
	s.metadata = m
}

// DependencyOption configures a single AddDependency call.
type DependencyOption func(*dependencyConfig)

type dependencyConfig struct {
	weak          bool
	intermediate  bool
	listen        bool
	checkComputed bool
}

// AsWeak marks the edge weak: a computed but stale dependency satisfies the
// pending predicate.
func AsWeak() DependencyOption {
	return func(c *dependencyConfig) { c.weak = true }
}

// AsIntermediate marks the edge as a pass-through that ProcessDependencies
// recurses into.
func AsIntermediate() DependencyOption {
	return func(c *dependencyConfig) { c.intermediate = true }
}

// WithoutListen registers the edge without notifications: updates of the
// dependency never touch this slot.
func WithoutListen() DependencyOption {
	return func(c *dependencyConfig) { c.listen = false }
}

// WithoutComputedCheck initializes the slot as not computed even when the
// dependency already holds a value. The slot only becomes computed on the
// next explicit SetValue of the dependency.
func WithoutComputedCheck() DependencyOption {
	return func(c *dependencyConfig) { c.checkComputed = false }
}

// AddDependency appends dep to the signal's dependencies and the signal to
// dep's listeners, returning the new slot index.
//
// A self edge is a no-op returning -1. Inserting the same dependency twice
// keeps both slots, but only the first is ever notified (SetValue
// short-circuits on the first matching slot).
func (s *Signal) AddDependency(dep *Signal, opts ...DependencyOption) (int, error) {
	if dep == s {
		return -1, nil
	}
	if s.valueType != nil && dep.valueType != nil && s.valueType != dep.valueType {
		return -1, &VariantMismatchError{
			Signal:   s,
			Expected: s.valueType.String(),
			Actual:   dep.valueType.String(),
		}
	}

	cfg := dependencyConfig{listen: true, checkComputed: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	var flags bitfield.Flag
	if cfg.weak {
		flags |= bitfield.Weak
	}
	if cfg.intermediate {
		flags |= bitfield.Intermediate
	}
	if cfg.checkComputed && dep.computed {
		flags |= bitfield.Computed | bitfield.Fresh
	}

	s.deps = append(s.deps, dep)
	i := s.depProps.Append(flags)

	dep.listeners = append(dep.listeners, s)
	dep.listenMask.Append(cfg.listen)

	s.pending = s.depProps.Len() > 0 && s.depProps.AllReady()

	return i, nil
}

// Dependencies returns the dependencies in insertion order.
func (s *Signal) Dependencies() iter.Seq[*Signal] {
	return func(yield func(*Signal) bool) {
		for _, d := range s.deps {
			if !yield(d) {
				return
			}
		}
	}
}

// Listeners returns the listeners in insertion order.
func (s *Signal) Listeners() iter.Seq[*Signal] {
	return func(yield func(*Signal) bool) {
		for _, l := range s.listeners {
			if !yield(l) {
				return
			}
		}
	}
}

// DependencyCount returns the number of dependency slots.
func (s *Signal) DependencyCount() int {
	return len(s.deps)
}

// DependencyAt returns the dependency at slot i.
func (s *Signal) DependencyAt(i int) *Signal {
	return s.deps[i]
}

// ListenerCount returns the number of listener slots.
func (s *Signal) ListenerCount() int {
	return len(s.listeners)
}

// ListenerAt returns the listener at slot i.
func (s *Signal) ListenerAt(i int) *Signal {
	return s.listeners[i]
}

// IsListening reports whether listener slot k receives notifications.
func (s *Signal) IsListening(k int) bool {
	return s.listenMask.Get(k)
}

// DependencyProps is a readable copy of a slot's packed flags.
type DependencyProps struct {
	Intermediate bool
	Weak         bool
	Computed     bool
	Fresh        bool
}

// DependencyPropsAt returns the flags of slot i.
func (s *Signal) DependencyPropsAt(i int) DependencyProps {
	f := s.depProps.Flags(i)
	return DependencyProps{
		Intermediate: f&bitfield.Intermediate != 0,
		Weak:         f&bitfield.Weak != 0,
		Computed:     f&bitfield.Computed != 0,
		Fresh:        f&bitfield.Fresh != 0,
	}
}

func (s *Signal) checkValueType(v any) error {
	if s.valueType == nil || IsUndef(v) {
		return nil
	}
	if t := reflect.TypeOf(v); t != s.valueType {
		return &VariantMismatchError{Signal: s, Expected: s.valueType.String(), Actual: t.String()}
	}
	return nil
}
