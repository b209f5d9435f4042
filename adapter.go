package cortex

import "iter"

// VariableID identifies a variable inside a model container.
type VariableID int

// FactorID identifies a factor inside a model container.
type FactorID int

// ModelEngine is the adapter contract for the external container holding
// variables, factors and their connections. All methods must be total on
// valid ids. This is the only hard interface the engine consumes.
type ModelEngine interface {
	Variable(id VariableID) (*Variable, error)
	Factor(id FactorID) (*Factor, error)
	ConnectionBetween(v VariableID, f FactorID) (*Connection, error)
	VariableIDs() iter.Seq[VariableID]
	FactorIDs() iter.Seq[FactorID]
	ConnectedVariableIDs(f FactorID) iter.Seq[VariableID]
	ConnectedFactorIDs(v VariableID) iter.Seq[FactorID]
}

// Variable is one node on the variable side of the bipartite graph. It owns
// its marginal signal and any externally linked signals.
type Variable struct {
	Name  string
	Index int

	marginal *Signal
	linked   []*Signal
}

// NewVariable creates a variable with a fresh, uncomputed marginal signal.
func NewVariable(name string) *Variable {
	return &Variable{
		Name:     name,
		Index:    -1,
		marginal: NewSignal(),
	}
}

// Marginal returns the variable's marginal signal.
func (v *Variable) Marginal() *Signal {
	return v.marginal
}

// Link attaches an externally owned signal to the variable.
func (v *Variable) Link(s *Signal) {
	v.linked = append(v.linked, s)
}

// LinkedSignals returns the externally linked signals in insertion order.
func (v *Variable) LinkedSignals() iter.Seq[*Signal] {
	return func(yield func(*Signal) bool) {
		for _, s := range v.linked {
			if !yield(s) {
				return
			}
		}
	}
}

// Factor is one node on the factor side of the bipartite graph.
type Factor struct {
	// Form is the factor's functional form. The engine never interprets it;
	// it is carried for the user's compute callback.
	Form any

	localMarginals []*Signal
}

// NewFactor creates a factor with the given functional form.
func NewFactor(form any) *Factor {
	return &Factor{Form: form}
}

// AddLocalMarginal appends a signal to the factor's local marginals.
// Resolvers use this to attach joint marginals they create.
func (f *Factor) AddLocalMarginal(s *Signal) {
	f.localMarginals = append(f.localMarginals, s)
}

// LocalMarginals returns the factor's local marginal signals in insertion
// order.
func (f *Factor) LocalMarginals() iter.Seq[*Signal] {
	return func(yield func(*Signal) bool) {
		for _, s := range f.localMarginals {
			if !yield(s) {
				return
			}
		}
	}
}

// Connection is the edge between a variable and a factor. It owns the two
// directed message signals of the edge.
type Connection struct {
	Label string
	Index int

	messageToVariable *Signal
	messageToFactor   *Signal
}

// NewConnection creates a connection with two fresh message signals.
func NewConnection(label string, index int) *Connection {
	return &Connection{
		Label:             label,
		Index:             index,
		messageToVariable: NewSignal(),
		messageToFactor:   NewSignal(),
	}
}

// MessageToVariable returns the signal carrying the factor-to-variable
// message of this edge.
func (c *Connection) MessageToVariable() *Signal {
	return c.messageToVariable
}

// MessageToFactor returns the signal carrying the variable-to-factor message
// of this edge.
func (c *Connection) MessageToFactor() *Signal {
	return c.messageToFactor
}

// MessageRef identifies the edge a message signal belongs to. It is attached
// as metadata to both message signals of a connection.
type MessageRef struct {
	Variable VariableID
	Factor   FactorID
}
