package cortex

// ClusterRef is the metadata of a JointMarginal signal: the factor it was
// created for and the cluster key its variables share.
type ClusterRef struct {
	Factor FactorID
	Key    string
}

// StructuredResolver wires a structured variational scheme. Variable-side
// wiring is identical to belief propagation. On the factor side, a factor's
// neighbour variables are clustered by a user criterion; each cluster of
// size > 1 gets a JointMarginal signal that depends on every inbound message
// of the cluster and is appended to the factor's local marginals. Outbound
// messages of cluster members depend on the inbound messages of the other
// clusters plus their own cluster's joint marginal.
type StructuredResolver struct {
	base       *BeliefPropagationResolver
	clusterKey func(*Variable) string
}

// StructuredOption configures the resolver.
type StructuredOption func(*StructuredResolver)

// WithClusterKey sets the clustering criterion. The default clusters by
// variable name.
func WithClusterKey(key func(*Variable) string) StructuredOption {
	return func(r *StructuredResolver) { r.clusterKey = key }
}

// NewStructuredResolver creates a structured resolver.
func NewStructuredResolver(opts ...StructuredOption) *StructuredResolver {
	r := &StructuredResolver{
		base:       NewBeliefPropagationResolver(),
		clusterKey: func(v *Variable) string { return v.Name },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *StructuredResolver) ResolveVariableDependencies(e *InferenceEngine, id VariableID) error {
	return r.base.ResolveVariableDependencies(e, id)
}

func (r *StructuredResolver) ResolveFactorDependencies(e *InferenceEngine, id FactorID) error {
	factor, err := e.Factor(id)
	if err != nil {
		return err
	}

	var vars []VariableID
	var conns []*Connection
	for v := range e.ConnectedVariableIDs(id) {
		conn, err := e.ConnectionBetween(v, id)
		if err != nil {
			return err
		}
		vars = append(vars, v)
		conns = append(conns, conn)
	}

	// cluster neighbours by key, preserving first-appearance order
	keys := make([]string, len(vars))
	clusterOf := make(map[string][]int)
	var order []string
	for i, v := range vars {
		variable, err := e.Variable(v)
		if err != nil {
			return err
		}
		key := r.clusterKey(variable)
		keys[i] = key
		if _, seen := clusterOf[key]; !seen {
			order = append(order, key)
		}
		clusterOf[key] = append(clusterOf[key], i)
	}

	joints := make(map[string]*Signal)
	for _, key := range order {
		members := clusterOf[key]
		if len(members) < 2 {
			continue
		}

		joint := NewSignal(
			WithVariant(JointMarginal),
			WithMetadata(ClusterRef{Factor: id, Key: key}),
		)
		for _, i := range members {
			if _, err := joint.AddDependency(conns[i].MessageToFactor()); err != nil {
				return err
			}
		}
		factor.AddLocalMarginal(joint)
		joints[key] = joint
	}

	for i, conn := range conns {
		for j, other := range conns {
			if keys[i] == keys[j] {
				continue
			}
			if _, err := conn.MessageToVariable().AddDependency(other.MessageToFactor()); err != nil {
				return err
			}
		}
		if joint, ok := joints[keys[i]]; ok {
			if _, err := conn.MessageToVariable().AddDependency(joint); err != nil {
				return err
			}
		}
	}

	return nil
}
