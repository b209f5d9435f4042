package cortex

// DependencyResolver wires the signals of a model into a dependency graph.
// The engine iterates over all variable and factor ids and invokes both
// operations; resolvers wire edges via AddDependency and may create
// additional signals (products, joint marginals) and link them into the
// model.
type DependencyResolver interface {
	ResolveVariableDependencies(e *InferenceEngine, id VariableID) error
	ResolveFactorDependencies(e *InferenceEngine, id FactorID) error
}

// BeliefPropagationResolver wires the sum-product dependencies:
//
//   - the marginal of v depends on every message to v,
//   - the message from v to f depends on the messages to v from every other
//     factor,
//   - the message from f to v depends on the messages to f from every other
//     variable.
type BeliefPropagationResolver struct {
	withProducts bool
}

// BeliefPropagationOption configures the resolver.
type BeliefPropagationOption func(*BeliefPropagationResolver)

// WithMessageProducts makes the resolver materialize a ProductOfMessages
// accumulator per outbound message of variables with more than two
// neighbours. Outbound messages then reach the inbound ones through an
// intermediate edge, and each accumulator carries a ProductRef with the
// variable's DualPendingGroup.
func WithMessageProducts() BeliefPropagationOption {
	return func(r *BeliefPropagationResolver) { r.withProducts = true }
}

// NewBeliefPropagationResolver creates the default resolver.
func NewBeliefPropagationResolver(opts ...BeliefPropagationOption) *BeliefPropagationResolver {
	r := &BeliefPropagationResolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProductRef is the metadata of a ProductOfMessages signal: the edge whose
// outbound message it serves, the owning variable's group of inbound
// messages, and the slot of the served edge within that group. The resolver
// marks in the group the inbound messages already computed at wiring time;
// messages computed later are not recorded in it by the engine.
type ProductRef struct {
	Ref   MessageRef
	Group *DualPendingGroup
	Slot  int
}

func (r *BeliefPropagationResolver) ResolveVariableDependencies(e *InferenceEngine, id VariableID) error {
	v, err := e.Variable(id)
	if err != nil {
		return err
	}

	var conns []*Connection
	var factors []FactorID
	for f := range e.ConnectedFactorIDs(id) {
		conn, err := e.ConnectionBetween(id, f)
		if err != nil {
			return err
		}
		conns = append(conns, conn)
		factors = append(factors, f)
	}

	for _, conn := range conns {
		if _, err := v.Marginal().AddDependency(conn.MessageToVariable()); err != nil {
			return err
		}
	}

	if r.withProducts && len(conns) > 2 {
		return r.resolveOutboundWithProducts(id, v, factors, conns)
	}

	for i, conn := range conns {
		for j, other := range conns {
			if i == j {
				continue
			}
			if _, err := conn.MessageToFactor().AddDependency(other.MessageToVariable()); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *BeliefPropagationResolver) resolveOutboundWithProducts(id VariableID, v *Variable, factors []FactorID, conns []*Connection) error {
	group := NewDualPendingGroup()
	for range conns {
		if _, err := group.AddElement(); err != nil {
			return err
		}
	}

	for i, conn := range conns {
		product := NewSignal(
			WithVariant(ProductOfMessages),
			WithMetadata(ProductRef{
				Ref:   MessageRef{Variable: id, Factor: factors[i]},
				Group: group,
				Slot:  i,
			}),
		)
		for j, other := range conns {
			if i == j {
				continue
			}
			if _, err := product.AddDependency(other.MessageToVariable()); err != nil {
				return err
			}
		}
		if _, err := conn.MessageToFactor().AddDependency(product, AsIntermediate()); err != nil {
			return err
		}
		v.Link(product)
	}

	// seed the arrival tracker with messages already computed at wiring time
	for i, conn := range conns {
		if conn.MessageToVariable().IsComputed() {
			group.SetPending(i)
		}
	}

	return nil
}

func (r *BeliefPropagationResolver) ResolveFactorDependencies(e *InferenceEngine, id FactorID) error {
	var conns []*Connection
	for v := range e.ConnectedVariableIDs(id) {
		conn, err := e.ConnectionBetween(v, id)
		if err != nil {
			return err
		}
		conns = append(conns, conn)
	}

	for i, conn := range conns {
		for j, other := range conns {
			if i == j {
				continue
			}
			if _, err := conn.MessageToVariable().AddDependency(other.MessageToFactor()); err != nil {
				return err
			}
		}
	}

	return nil
}
