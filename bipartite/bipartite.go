// Package bipartite is the built-in model container: a bipartite graph of
// variables and factors whose edges carry the two directed message signals.
// It implements the cortex.ModelEngine adapter and keeps insertion order for
// every iterator, so resolver wiring is deterministic.
package bipartite

import (
	"iter"

	"github.com/pkg/errors"

	"github.com/cortexgraph/cortex"
)

type edgeKey struct {
	v cortex.VariableID
	f cortex.FactorID
}

// Graph is an append-only bipartite factor graph.
type Graph struct {
	variables []*cortex.Variable
	factors   []*cortex.Factor

	edges        map[edgeKey]*cortex.Connection
	varNeighbors [][]cortex.FactorID
	facNeighbors [][]cortex.VariableID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		edges: make(map[edgeKey]*cortex.Connection),
	}
}

// AddVariable adds a variable and returns its id.
func (g *Graph) AddVariable(name string) cortex.VariableID {
	g.variables = append(g.variables, cortex.NewVariable(name))
	g.varNeighbors = append(g.varNeighbors, nil)
	return cortex.VariableID(len(g.variables) - 1)
}

// AddVariableIndexed adds a variable carrying an index, for models with
// replicated variables such as observation plates.
func (g *Graph) AddVariableIndexed(name string, index int) cortex.VariableID {
	id := g.AddVariable(name)
	g.variables[id].Index = index
	return id
}

// AddFactor adds a factor with the given functional form and returns its id.
func (g *Graph) AddFactor(form any) cortex.FactorID {
	g.factors = append(g.factors, cortex.NewFactor(form))
	g.facNeighbors = append(g.facNeighbors, nil)
	return cortex.FactorID(len(g.factors) - 1)
}

// Connect adds the edge between a variable and a factor and returns its
// connection. Connecting the same pair twice is an error.
func (g *Graph) Connect(v cortex.VariableID, f cortex.FactorID, label string) (*cortex.Connection, error) {
	if err := g.checkVariable(v); err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err := g.checkFactor(f); err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	key := edgeKey{v: v, f: f}
	if _, ok := g.edges[key]; ok {
		return nil, errors.Errorf("connect: edge between variable %d and factor %d already exists", v, f)
	}

	conn := cortex.NewConnection(label, len(g.facNeighbors[f]))
	g.edges[key] = conn
	g.varNeighbors[v] = append(g.varNeighbors[v], f)
	g.facNeighbors[f] = append(g.facNeighbors[f], v)

	return conn, nil
}

// Variable implements cortex.ModelEngine.
func (g *Graph) Variable(id cortex.VariableID) (*cortex.Variable, error) {
	if err := g.checkVariable(id); err != nil {
		return nil, err
	}
	return g.variables[id], nil
}

// Factor implements cortex.ModelEngine.
func (g *Graph) Factor(id cortex.FactorID) (*cortex.Factor, error) {
	if err := g.checkFactor(id); err != nil {
		return nil, err
	}
	return g.factors[id], nil
}

// ConnectionBetween implements cortex.ModelEngine.
func (g *Graph) ConnectionBetween(v cortex.VariableID, f cortex.FactorID) (*cortex.Connection, error) {
	conn, ok := g.edges[edgeKey{v: v, f: f}]
	if !ok {
		return nil, errors.Errorf("no edge between variable %d and factor %d", v, f)
	}
	return conn, nil
}

// VariableIDs implements cortex.ModelEngine.
func (g *Graph) VariableIDs() iter.Seq[cortex.VariableID] {
	return func(yield func(cortex.VariableID) bool) {
		for i := range g.variables {
			if !yield(cortex.VariableID(i)) {
				return
			}
		}
	}
}

// FactorIDs implements cortex.ModelEngine.
func (g *Graph) FactorIDs() iter.Seq[cortex.FactorID] {
	return func(yield func(cortex.FactorID) bool) {
		for i := range g.factors {
			if !yield(cortex.FactorID(i)) {
				return
			}
		}
	}
}

// ConnectedVariableIDs implements cortex.ModelEngine.
func (g *Graph) ConnectedVariableIDs(f cortex.FactorID) iter.Seq[cortex.VariableID] {
	return func(yield func(cortex.VariableID) bool) {
		if int(f) >= len(g.facNeighbors) || f < 0 {
			return
		}
		for _, v := range g.facNeighbors[f] {
			if !yield(v) {
				return
			}
		}
	}
}

// ConnectedFactorIDs implements cortex.ModelEngine.
func (g *Graph) ConnectedFactorIDs(v cortex.VariableID) iter.Seq[cortex.FactorID] {
	return func(yield func(cortex.FactorID) bool) {
		if int(v) >= len(g.varNeighbors) || v < 0 {
			return
		}
		for _, f := range g.varNeighbors[v] {
			if !yield(f) {
				return
			}
		}
	}
}

func (g *Graph) checkVariable(id cortex.VariableID) error {
	if id < 0 || int(id) >= len(g.variables) {
		return errors.Errorf("unknown variable %d", id)
	}
	return nil
}

func (g *Graph) checkFactor(id cortex.FactorID) error {
	if id < 0 || int(id) >= len(g.factors) {
		return errors.Errorf("unknown factor %d", id)
	}
	return nil
}
