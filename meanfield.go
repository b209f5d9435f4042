package cortex

// MeanFieldResolver wires a naive mean-field scheme. The marginal of v
// depends on every message to v; the message from f to v depends weakly on
// the marginals of the other variables of f, so a sweep can run from stale
// marginals and re-runs when any of them is recomputed.
type MeanFieldResolver struct{}

// NewMeanFieldResolver creates a mean-field resolver.
func NewMeanFieldResolver() *MeanFieldResolver {
	return &MeanFieldResolver{}
}

func (r *MeanFieldResolver) ResolveVariableDependencies(e *InferenceEngine, id VariableID) error {
	v, err := e.Variable(id)
	if err != nil {
		return err
	}

	for f := range e.ConnectedFactorIDs(id) {
		conn, err := e.ConnectionBetween(id, f)
		if err != nil {
			return err
		}
		if _, err := v.Marginal().AddDependency(conn.MessageToVariable()); err != nil {
			return err
		}
	}

	return nil
}

func (r *MeanFieldResolver) ResolveFactorDependencies(e *InferenceEngine, id FactorID) error {
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

	for i, conn := range conns {
		for j, other := range vars {
			if i == j {
				continue
			}
			variable, err := e.Variable(other)
			if err != nil {
				return err
			}
			if _, err := conn.MessageToVariable().AddDependency(variable.Marginal(), AsWeak()); err != nil {
				return err
			}
		}
	}

	return nil
}
